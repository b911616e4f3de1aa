package detections

import (
	"context"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/Tutortoise/threat-detection-service/models"
)

// Backend turns a decoded image into raw detection rows.
type Backend interface {
	Name() string
	Infer(ctx context.Context, img image.Image) ([]models.RawDetection, error)
	Close() error
}

// StatsReporter is implemented by backends that expose runtime counters.
type StatsReporter interface {
	Stats() map[string]interface{}
}

// Factory constructs a backend on a cold start.
type Factory func(ctx context.Context) (Backend, error)

const (
	BackendPlaceholder = "placeholder"
	BackendOnnx        = "onnx"
	BackendRemote      = "remote"
	BackendOpenCV      = "opencv"
)

type BackendConfig struct {
	Kind          string
	ModelPath     string
	ConfigPath    string
	LabelsPath    string
	LibraryPath   string
	PoolSize      int
	Latency       time.Duration
	RemoteURL     string
	RemoteTimeout time.Duration
	ConfThreshold float64
	IouThreshold  float64
}

// NewFactory selects the backend implementation named by cfg.Kind.
func NewFactory(cfg BackendConfig) (Factory, error) {
	switch cfg.Kind {
	case "", BackendPlaceholder:
		return func(context.Context) (Backend, error) {
			return NewPlaceholderBackend(cfg.Latency), nil
		}, nil
	case BackendOnnx:
		return func(context.Context) (Backend, error) {
			backend, err := NewOnnxBackend(cfg)
			if err != nil {
				return nil, err
			}
			return backend, nil
		}, nil
	case BackendRemote:
		return func(context.Context) (Backend, error) {
			backend, err := NewRemoteBackend(cfg.RemoteURL, cfg.RemoteTimeout)
			if err != nil {
				return nil, err
			}
			return backend, nil
		}, nil
	case BackendOpenCV:
		return func(context.Context) (Backend, error) {
			return NewOpenCVBackend(cfg)
		}, nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Kind)
	}
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// validateRow rejects rows a backend should never produce.
func validateRow(i int, row models.RawDetection) error {
	for _, v := range []float64{row.XMin, row.YMin, row.XMax, row.YMax, row.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("row %d: non-finite value", i)
		}
	}
	if row.Name == "" {
		return fmt.Errorf("row %d: missing class name", i)
	}
	if row.Class < 0 {
		return fmt.Errorf("row %d: negative class id %d", i, row.Class)
	}
	if row.Confidence < 0 || row.Confidence > 1 {
		return fmt.Errorf("row %d: confidence %v outside [0,1]", i, row.Confidence)
	}
	if row.XMin > row.XMax || row.YMin > row.YMax {
		return fmt.Errorf("row %d: inverted bounding box", i)
	}
	return nil
}
