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
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/facegate/internal/api"
	"github.com/your-org/facegate/internal/api/ws"
	"github.com/your-org/facegate/internal/attendance"
	"github.com/your-org/facegate/internal/config"
	"github.com/your-org/facegate/internal/match"
	"github.com/your-org/facegate/internal/models"
	"github.com/your-org/facegate/internal/observability"
	"github.com/your-org/facegate/internal/queue"
	"github.com/your-org/facegate/internal/recognizer"
	"github.com/your-org/facegate/internal/storage"
	"github.com/your-org/facegate/internal/vision"
	"github.com/your-org/facegate/pkg/dto"
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

	slog.Info("starting facegate API service", "port", cfg.Server.Port)

	defaultShift, err := attendance.ShiftFromConfig(cfg.Attendance)
	if err != nil {
		slog.Error("attendance config", "error", err)
		os.Exit(1)
	}
	policy := attendance.PolicyFromConfig(cfg.Attendance)

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
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Outcome consumer: persist worker results and broadcast them
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create outcome consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeOutcomes(ctx, "api-outcomes", func(ctx context.Context, msg jetstream.Msg) error {
		var attempt models.AccessAttempt
		if err := json.Unmarshal(msg.Data(), &attempt); err != nil {
			return err
		}

		if err := db.Record(ctx, &attempt); err != nil {
			slog.Error("persist attempt", "error", err, "attempt", attempt.ID)
			return err
		}

		hub.BroadcastAttempt(&dto.WSEvent{
			Type:     "access_attempt",
			PersonID: attempt.PersonID,
			Data: dto.AttemptResponse{
				ID:            attempt.ID,
				Timestamp:     attempt.Timestamp.Format(time.RFC3339),
				DeviceID:      attempt.DeviceID,
				PersonID:      attempt.PersonID,
				PersonName:    attempt.PersonName,
				Confidence:    attempt.Confidence,
				Accepted:      attempt.Accepted,
				Label:         attempt.Label,
				OvertimeHours: attempt.OvertimeHours,
				WorkDay:       attempt.WorkDay,
				Reason:        attempt.Reason,
				SnapshotKey:   attempt.SnapshotKey,
				CreatedAt:     attempt.CreatedAt.Format(time.RFC3339),
			},
		})

		return nil
	})
	if err != nil {
		slog.Warn("start outcome consumer", "error", err)
	}

	// Candidate index: pgvector queries or an in-process graph warmed
	// from the enrolled embeddings.
	var index match.Index = db.Index()
	var memIndex *match.MemoryIndex
	if cfg.Recognition.Index == "memory" {
		memIndex = match.NewMemoryIndex(cfg.Recognition.EmbeddingDim)
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

	// ONNX models for the synchronous identify and enrollment endpoints
	var source *vision.Source
	var embedFn func(context.Context, []byte) ([]float32, error)

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed — identify/enroll will be unavailable", "error", err)
	} else {
		source, err = vision.NewSource(cfg.Vision, nil)
		if err != nil {
			slog.Warn("vision init failed — identify/enroll will be unavailable", "error", err)
		} else {
			embedFn = source.Embed
			defer source.Close()
			defer ort.DestroyEnvironment()
			slog.Info("vision models ready")
		}
	}

	var rec *recognizer.Recognizer
	if source != nil {
		rec = recognizer.New(recognizer.Config{
			Source:    source,
			Index:     index,
			Resolver:  attendance.NewResolver(db, defaultShift),
			Recorder:  db,
			Policy:    policy,
			Threshold: cfg.Recognition.Threshold,
			TopK:      cfg.Recognition.TopK,
		})
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:       cfg.Server.APIKey,
		DB:           db,
		MinIO:        minioStore,
		Producer:     producer,
		Hub:          hub,
		Recognizer:   rec,
		DefaultShift: defaultShift,
		EmbedFn:      embedFn,
		MemIndex:     memIndex,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
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
