package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/facegate/internal/attendance"
	"github.com/your-org/facegate/internal/config"
	"github.com/your-org/facegate/internal/match"
	"github.com/your-org/facegate/internal/models"
	"github.com/your-org/facegate/internal/observability"
	"github.com/your-org/facegate/internal/queue"
	"github.com/your-org/facegate/internal/recognizer"
	"github.com/your-org/facegate/internal/storage"
	"github.com/your-org/facegate/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting facegate recognition worker",
		"workers", cfg.Recognition.WorkerCount,
		"cpu_cores", runtime.NumCPU(),
	)

	defaultShift, err := attendance.ShiftFromConfig(cfg.Attendance)
	if err != nil {
		slog.Error("attendance config", "error", err)
		os.Exit(1)
	}
	policy := attendance.PolicyFromConfig(cfg.Attendance)

	// Initialize ONNX Runtime
	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Vision models
	source, err := vision.NewSource(cfg.Vision, nil)
	if err != nil {
		slog.Error("init vision models", "error", err)
		os.Exit(1)
	}
	defer source.Close()

	// Candidate index
	var index match.Index = db.Index()
	if cfg.Recognition.Index == "memory" {
		memIndex := match.NewMemoryIndex(cfg.Recognition.EmbeddingDim)
		faces, err := db.LoadEnrolledFaces(context.Background())
		if err != nil {
			slog.Error("warm memory index", "error", err)
			os.Exit(1)
		}
		for _, face := range faces {
			if err := memIndex.Add(face); err != nil {
				slog.Warn("index enrolled face", "error", err, "face", face.FaceID)
			}
		}
		index = memIndex
		slog.Info("memory index warmed", "faces", memIndex.Len())
	}

	// Outcomes go to the ACCESS stream; the API persists and broadcasts
	// them.
	rec := recognizer.New(recognizer.Config{
		Source:    source,
		Index:     index,
		Resolver:  attendance.NewResolver(db, defaultShift),
		Recorder:  producer,
		Policy:    policy,
		Threshold: cfg.Recognition.Threshold,
		TopK:      cfg.Recognition.TopK,
	})

	slog.Info("recognition pipeline initialized")

	// Create NATS consumer
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start consuming capture tasks
	err = consumer.ConsumeCaptures(ctx, "recognition-workers", func(ctx context.Context, msg jetstream.Msg) error {
		var task models.CaptureTask
		if err := json.Unmarshal(msg.Data(), &task); err != nil {
			slog.Error("unmarshal capture task", "error", err)
			return nil // Don't retry on unmarshal errors
		}

		imageData, err := minioStore.GetObject(ctx, task.ObjectKey)
		if err != nil {
			return fmt.Errorf("load capture %s: %w", task.CaptureID, err)
		}

		attempt, err := rec.Identify(ctx, imageData, recognizer.Options{
			Timestamp:   task.Timestamp,
			DeviceID:    task.DeviceID,
			SnapshotKey: task.ObjectKey,
		})
		if err != nil {
			// A non-nil attempt was already recorded (fail-closed
			// denial); retrying would record it twice.
			if attempt != nil {
				slog.Warn("capture denied on schedule failure", "capture", task.CaptureID, "error", err)
				return nil
			}
			return fmt.Errorf("identify capture %s: %w", task.CaptureID, err)
		}

		return nil
	}, cfg.Recognition.WorkerCount)
	if err != nil {
		slog.Error("start capture consumer", "error", err)
		os.Exit(1)
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("worker metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	// Periodically report queue depth
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.QueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down worker...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("worker stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path
// based on the operating system.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
