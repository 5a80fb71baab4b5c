package logging

import "time"

// Generic field constructors.

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Traversal-specific helpers for common fields.

func Rank(r int) Field {
	return Int("rank", r)
}

func Peer(r int) Field {
	return Int("peer", r)
}

func Workers(n int) Field {
	return Int("workers", n)
}

func Vertex(v int32) Field {
	return Int("vertex", int(v))
}

func Count(n int) Field {
	return Int("count", n)
}

func Bytes(n int) Field {
	return Int("bytes", n)
}

func Phase(name string) Field {
	return String("phase", name)
}

func RunID(id string) Field {
	return String("run_id", id)
}
