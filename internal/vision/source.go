package vision

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/facegate/internal/config"
	"github.com/your-org/facegate/internal/observability"
	"github.com/your-org/facegate/internal/recognizer"
)

// Source turns a raw snapshot into a single face embedding: decode,
// detect, crop the best face, embed. It satisfies the recognition
// pipeline's embedding contract and reports "no face" conditions as
// recognizer.ErrNoFace.
type Source struct {
	detector *Detector
	embedder *Embedder
}

// NewSource loads both ONNX models from cfg.ModelsDir.
func NewSource(cfg config.VisionConfig, opts *ort.SessionOptions) (*Source, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), opts)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath, opts)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Source{detector: det, embedder: emb}, nil
}

// EmbeddingDim returns the dimension of vectors produced by Embed.
func (s *Source) EmbeddingDim() int {
	return s.embedder.EmbeddingDim()
}

// Embed extracts the embedding of the most confident face in image.
// An undecodable image or one with no detectable face yields
// recognizer.ErrNoFace.
func (s *Source) Embed(ctx context.Context, image []byte) ([]float32, error) {
	img, err := decodeImage(image)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", recognizer.ErrNoFace)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start := time.Now()
	detInput := preprocessForDetection(img, s.detector.inputW, s.detector.inputH)
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	detections, err := s.detector.Detect(detInput, origW, origH)
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	if len(detections) == 0 {
		return nil, recognizer.ErrNoFace
	}

	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	faceCrop := cropFace(img, best.BBox)
	if faceCrop == nil {
		return nil, recognizer.ErrNoFace
	}

	embInput := preprocessForEmbedding(faceCrop, s.embedder.inputW, s.embedder.inputH)
	embedding, err := s.embedder.Extract(embInput)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	return embedding, nil
}

// Close releases both ONNX sessions.
func (s *Source) Close() {
	if s.detector != nil {
		s.detector.Close()
	}
	if s.embedder != nil {
		s.embedder.Close()
	}
}
