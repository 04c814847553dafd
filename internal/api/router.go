package api

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/facegate/internal/api/handlers"
	"github.com/your-org/facegate/internal/api/ws"
	"github.com/your-org/facegate/internal/attendance"
	"github.com/your-org/facegate/internal/auth"
	"github.com/your-org/facegate/internal/match"
	"github.com/your-org/facegate/internal/queue"
	"github.com/your-org/facegate/internal/recognizer"
	"github.com/your-org/facegate/internal/storage"
)

type RouterConfig struct {
	APIKey       string
	DB           *storage.PostgresStore
	MinIO        *storage.MinIOStore
	Producer     *queue.Producer
	Hub          *ws.Hub
	Recognizer   *recognizer.Recognizer
	DefaultShift attendance.Shift
	// EmbedFn extracts a face embedding from image bytes (from the
	// vision models).
	EmbedFn func(ctx context.Context, imageData []byte) ([]float32, error)
	// MemIndex is set when the in-process index is active so enrollment
	// changes reach it without a restart.
	MemIndex *match.MemoryIndex
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Recognition. A nil *Recognizer must stay a nil interface so the
	// handler's availability check works.
	var identifier handlers.Identifier
	if cfg.Recognizer != nil {
		identifier = cfg.Recognizer
	}
	identifyH := handlers.NewIdentifyHandler(identifier, cfg.MinIO, cfg.Producer, cfg.Hub)
	v1.POST("/identify", identifyH.Identify)
	v1.POST("/captures", identifyH.EnqueueCapture)

	// Persons & Faces
	personH := handlers.NewPersonHandler(cfg.DB, cfg.MinIO)
	personH.EmbedFn = cfg.EmbedFn
	personH.MemIndex = cfg.MemIndex
	v1.POST("/persons", personH.Create)
	v1.GET("/persons", personH.List)
	v1.GET("/persons/:id", personH.Get)
	v1.DELETE("/persons/:id", personH.Deactivate)
	v1.POST("/persons/:id/activate", personH.Activate)
	v1.POST("/persons/:id/faces", personH.AddFace)
	v1.GET("/persons/:id/faces", personH.ListFaces)
	v1.DELETE("/persons/:id/faces/:faceId", personH.DeleteFace)

	// Shifts
	shiftH := handlers.NewShiftHandler(cfg.DB, cfg.DefaultShift)
	v1.PUT("/persons/:id/shift", shiftH.Upsert)
	v1.GET("/persons/:id/shift", shiftH.Get)

	// Attempts
	attemptH := handlers.NewAttemptHandler(cfg.DB, cfg.MinIO)
	v1.GET("/attempts", attemptH.List)
	v1.GET("/attempts/:id", attemptH.Get)
	v1.GET("/attempts/:id/snapshot", attemptH.Snapshot)

	return r
}
