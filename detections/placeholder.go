package detections

import (
	"context"
	"image"
	"time"

	"github.com/Tutortoise/threat-detection-service/models"
)

const DefaultPlaceholderLatency = 100 * time.Millisecond

var placeholderRows = []models.RawDetection{
	{XMin: 100, YMin: 100, XMax: 150, YMax: 150, Confidence: 0.92, Class: 0, Name: "person"},
	{XMin: 200, YMin: 150, XMax: 250, YMax: 200, Confidence: 0.85, Class: 1, Name: "car"},
	{XMin: 300, YMin: 200, XMax: 350, YMax: 250, Confidence: 0.76, Class: 2, Name: "suspicious_object"},
}

// PlaceholderBackend stands in for a real model. It ignores the image and
// always reports the same three objects after a simulated inference delay.
type PlaceholderBackend struct {
	latency time.Duration
}

func NewPlaceholderBackend(latency time.Duration) *PlaceholderBackend {
	if latency < 0 {
		latency = 0
	}
	return &PlaceholderBackend{latency: latency}
}

func (p *PlaceholderBackend) Name() string { return BackendPlaceholder }

func (p *PlaceholderBackend) Infer(ctx context.Context, _ image.Image) ([]models.RawDetection, error) {
	if err := sleepCtx(ctx, p.latency); err != nil {
		return nil, err
	}

	rows := make([]models.RawDetection, len(placeholderRows))
	copy(rows, placeholderRows)
	return rows, nil
}

func (p *PlaceholderBackend) Close() error { return nil }
