package detections

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Tutortoise/threat-detection-service/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}

func (l *recordingLogger) Debug(string, ...interface{}) {}

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

// stubBackend returns fixed rows or a fixed error.
type stubBackend struct {
	rows   []models.RawDetection
	err    error
	calls  atomic.Int64
	closed atomic.Bool
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Infer(context.Context, image.Image) ([]models.RawDetection, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

func (s *stubBackend) Close() error {
	s.closed.Store(true)
	return nil
}

func staticFactory(b Backend) Factory {
	return func(context.Context) (Backend, error) { return b, nil }
}
