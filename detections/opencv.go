//go:build gocv
// +build gocv

package detections

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/Tutortoise/threat-detection-service/models"

	"gocv.io/x/gocv"
)

// OpenCVBackend runs an SSD-style network through the OpenCV DNN module.
// gocv.Net is not safe for concurrent use, so inference is serialised.
type OpenCVBackend struct {
	mu            sync.Mutex
	net           gocv.Net
	labels        []string
	confThreshold float64
}

func NewOpenCVBackend(cfg BackendConfig) (Backend, error) {
	if err := requireFile("model", cfg.ModelPath); err != nil {
		return nil, err
	}
	if err := requireFile("model config", cfg.ConfigPath); err != nil {
		return nil, err
	}
	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	conf := cfg.ConfThreshold
	if conf <= 0 {
		conf = DefaultConfThreshold
	}

	return &OpenCVBackend{net: net, labels: labels, confThreshold: conf}, nil
}

func (b *OpenCVBackend) Name() string { return BackendOpenCV }

func (b *OpenCVBackend) Infer(ctx context.Context, img image.Image) ([]models.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("converted image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	b.mu.Lock()
	b.net.SetInput(blob, "")
	output := b.net.Forward("")
	b.mu.Unlock()
	defer output.Close()

	cols, rows := float64(mat.Cols()), float64(mat.Rows())

	// Each row: [batch_id, class_id, confidence, x1, y1, x2, y2], coordinates normalised.
	reshaped := output.Reshape(1, output.Total()/7)
	defer reshaped.Close()

	var results []models.RawDetection
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := float64(reshaped.GetFloatAt(i, 2))
		if confidence < b.confThreshold {
			continue
		}
		classID := int(reshaped.GetFloatAt(i, 1))
		results = append(results, models.RawDetection{
			XMin:       clamp(float64(reshaped.GetFloatAt(i, 3))*cols, 0, cols),
			YMin:       clamp(float64(reshaped.GetFloatAt(i, 4))*rows, 0, rows),
			XMax:       clamp(float64(reshaped.GetFloatAt(i, 5))*cols, 0, cols),
			YMax:       clamp(float64(reshaped.GetFloatAt(i, 6))*rows, 0, rows),
			Confidence: confidence,
			Class:      classID,
			Name:       labelFor(b.labels, classID),
		})
	}

	return results, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (b *OpenCVBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.net.Close()
}
