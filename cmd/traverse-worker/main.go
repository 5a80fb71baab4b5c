// Command traverse-worker is one rank of a multi-process traversal run.
// Every worker loads the same config apart from its rank, connects the TCP
// mesh, runs its share of the traversal and joins the final reduction.
// Rank 0 prints the summary and optionally ships the CSV row to S3.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/dd0wney/cluso-traverse/pkg/config"
	"github.com/dd0wney/cluso-traverse/pkg/domain"
	"github.com/dd0wney/cluso-traverse/pkg/graph"
	"github.com/dd0wney/cluso-traverse/pkg/logging"
	"github.com/dd0wney/cluso-traverse/pkg/metrics"
	"github.com/dd0wney/cluso-traverse/pkg/report"
	"github.com/dd0wney/cluso-traverse/pkg/transport"
	"github.com/dd0wney/cluso-traverse/pkg/traverse"
)

func main() {
	configPath := flag.String("config", "worker.yaml", "Path to the worker config file")
	rankOverride := flag.Int("rank", -1, "Override the rank from the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *rankOverride >= 0 {
		cfg.Rank = *rankOverride
		if err := cfg.Finalize(); err != nil {
			log.Fatalf("Invalid rank override: %v", err)
		}
	}

	logger := logging.NewDefaultLogger()
	logger.SetLevel(logging.ParseLevel(cfg.LogLevel))
	log0 := logger.With(logging.Rank(cfg.Rank), logging.RunID(cfg.RunID))

	reg := metrics.DefaultRegistry()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := reg.Serve(cfg.MetricsAddr); err != nil {
				log0.Error("metrics listener stopped", logging.Error(err))
			}
		}()
		go func() {
			for range time.Tick(10 * time.Second) {
				reg.UpdateSystemMetrics()
			}
		}()
	}

	total := cfg.TotalVertices()
	if err := domain.Verify(total, len(cfg.Peers)); err != nil {
		log0.Error("domain decomposition check failed", logging.Error(err))
		log.Fatalf("Domain decomposition check failed: %v", err)
	}

	var g graph.Graph
	switch cfg.Model {
	case config.ModelDense:
		g = graph.SynthesizeDense(total, cfg.Degree)
	default:
		g = graph.Synthesize(total)
	}

	log0.Info("connecting mesh",
		logging.Workers(len(cfg.Peers)),
		logging.Int("vertices", total))

	mesh, err := transport.NewTCPMesh(cfg.Rank, cfg.Peers,
		transport.WithObserver(func(direction string, tag transport.Tag, bytes int) {
			reg.ObserveMessage(direction, tag.String(), bytes)
		}))
	if err != nil {
		log.Fatalf("Failed to connect mesh: %v", err)
	}
	defer mesh.Close()

	dom := domain.Setup(total, cfg.Rank, len(cfg.Peers))
	res, err := traverse.Run(mesh, g, dom, traverse.Options{
		Target:  int32(cfg.Target),
		Logger:  log0,
		Metrics: reg,
	})
	if err != nil {
		log.Fatalf("Traversal failed: %v", err)
	}

	summary, err := traverse.Aggregate(mesh, total, res)
	if err != nil {
		log.Fatalf("Aggregation failed: %v", err)
	}

	if cfg.Rank != 0 {
		return
	}

	fmt.Print(report.Render(summary))

	if cfg.S3 != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		uploader, err := report.NewS3Uploader(ctx, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.Region)
		if err != nil {
			log0.Error("s3 uploader init failed", logging.Error(err))
			return
		}
		if err := uploader.Upload(ctx, cfg.RunID, summary); err != nil {
			log0.Error("s3 upload failed", logging.Error(err))
			return
		}
		log0.Info("results uploaded", logging.String("bucket", cfg.S3.Bucket))
	}
}
