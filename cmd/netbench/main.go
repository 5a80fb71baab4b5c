// Command netbench measures point-to-point mesh performance between two
// ranks: ping-pong round-trip latency and one-way bandwidth over a sweep
// of message sizes. Run one instance per rank with the same peer list.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dd0wney/cluso-traverse/pkg/config"
	"github.com/dd0wney/cluso-traverse/pkg/transport"
)

const (
	latencyIterations = 1000
	latencyWarmup     = 100

	bandwidthIterations = 10
	bandwidthWarmup     = 3
)

var bandwidthSizes = []int{
	1 << 10,   // 1 KB
	10 << 10,  // 10 KB
	100 << 10, // 100 KB
	1 << 20,   // 1 MB
	10 << 20,  // 10 MB
}

func main() {
	rank := flag.Int("rank", 0, "This rank (0 or 1)")
	peerList := flag.String("peers", "tcp://127.0.0.1:9600,tcp://127.0.0.1:9601", "Comma-separated peer addresses")
	flag.Parse()

	peers := strings.Split(*peerList, ",")
	if len(peers) != 2 {
		log.Fatalf("Need exactly two peers: %v", config.ErrTooFewWorkers)
	}
	if *rank < 0 || *rank > 1 {
		log.Fatalf("Rank must be 0 or 1, got %d", *rank)
	}

	mesh, err := transport.NewTCPMesh(*rank, peers)
	if err != nil {
		log.Fatalf("Failed to connect mesh: %v", err)
	}
	defer mesh.Close()

	peer := 1 - *rank

	if *rank == 0 {
		fmt.Printf("🔬 Mesh Point-to-Point Benchmark\n\n")
		runLatency(mesh, peer)
		runBandwidth(mesh, peer)
	} else {
		echoLatency(mesh, peer)
		sinkBandwidth(mesh, peer)
	}
}

// runLatency measures round-trip time with a one-byte ping-pong.
func runLatency(mesh transport.Mesh, peer int) {
	ping := []byte{0}

	for i := 0; i < latencyWarmup; i++ {
		pingPong(mesh, peer, ping)
	}

	start := time.Now()
	for i := 0; i < latencyIterations; i++ {
		pingPong(mesh, peer, ping)
	}
	elapsed := time.Since(start)

	rtt := elapsed / latencyIterations
	fmt.Printf("Latency (%d iterations):\n", latencyIterations)
	fmt.Printf("  Round trip:  %s\n", rtt)
	fmt.Printf("  One way:     %s\n\n", rtt/2)
}

func pingPong(mesh transport.Mesh, peer int, ping []byte) {
	if err := mesh.Send(peer, transport.TagBench, ping).Wait(); err != nil {
		log.Fatalf("Ping send failed: %v", err)
	}
	if err := mesh.Recv(peer, transport.TagBench).Wait(); err != nil {
		log.Fatalf("Pong recv failed: %v", err)
	}
}

func echoLatency(mesh transport.Mesh, peer int) {
	for i := 0; i < latencyWarmup+latencyIterations; i++ {
		op := mesh.Recv(peer, transport.TagBench)
		data, err := op.Data()
		if err != nil {
			log.Fatalf("Echo recv failed: %v", err)
		}
		if err := mesh.Send(peer, transport.TagBench, data).Wait(); err != nil {
			log.Fatalf("Echo send failed: %v", err)
		}
	}
}

// runBandwidth measures one-way throughput for each message size. The
// receiver acknowledges each batch so timing covers delivery, not just
// the local enqueue.
func runBandwidth(mesh transport.Mesh, peer int) {
	fmt.Printf("Bandwidth (%d iterations per size):\n", bandwidthIterations)

	for _, size := range bandwidthSizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}

		for i := 0; i < bandwidthWarmup; i++ {
			sendAcked(mesh, peer, payload)
		}

		start := time.Now()
		for i := 0; i < bandwidthIterations; i++ {
			sendAcked(mesh, peer, payload)
		}
		elapsed := time.Since(start)

		bytes := float64(size) * bandwidthIterations
		mbps := bytes / elapsed.Seconds() / (1 << 20)
		fmt.Printf("  %8s  %10.2f MB/s\n", sizeLabel(size), mbps)
	}
}

func sendAcked(mesh transport.Mesh, peer int, payload []byte) {
	if err := mesh.Send(peer, transport.TagBench, payload).Wait(); err != nil {
		log.Fatalf("Bandwidth send failed: %v", err)
	}
	if err := mesh.Recv(peer, transport.TagBench).Wait(); err != nil {
		log.Fatalf("Bandwidth ack failed: %v", err)
	}
}

func sinkBandwidth(mesh transport.Mesh, peer int) {
	ack := []byte{1}
	for range bandwidthSizes {
		for i := 0; i < bandwidthWarmup+bandwidthIterations; i++ {
			if err := mesh.Recv(peer, transport.TagBench).Wait(); err != nil {
				log.Fatalf("Sink recv failed: %v", err)
			}
			if err := mesh.Send(peer, transport.TagBench, ack).Wait(); err != nil {
				log.Fatalf("Sink ack failed: %v", err)
			}
		}
	}
}

func sizeLabel(size int) string {
	if size >= 1<<20 {
		return fmt.Sprintf("%d MB", size>>20)
	}
	return fmt.Sprintf("%d KB", size>>10)
}
