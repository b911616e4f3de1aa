package detections

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"time"

	"github.com/Tutortoise/threat-detection-service/models"

	ort "github.com/yalue/onnxruntime_go"
)

// ModelSession owns one ONNX Runtime session and its bound tensors.
type ModelSession struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

func (m *ModelSession) Destroy() {
	if m.Session != nil {
		m.Session.Destroy()
	}
	if m.Input != nil {
		m.Input.Destroy()
	}
	if m.Output != nil {
		m.Output.Destroy()
	}
}

// numAnchors is the prediction count of a 640x640 YOLOv8 head.
const numAnchors = 8400

func initSession(modelPath string, numClasses, threadsPerSession int) (*ModelSession, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(threadsPerSession)
	options.SetInterOpNumThreads(1)

	inputShape := ort.NewShape(1, 3, InputHeight, InputWidth)
	outputShape := ort.NewShape(1, int64(4+numClasses), numAnchors)

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &ModelSession{
		Session: session,
		Input:   inputTensor,
		Output:  outputTensor,
	}, nil
}

// OnnxBackend runs a YOLOv8-style detector through ONNX Runtime.
type OnnxBackend struct {
	pool          *SessionPool[*ModelSession]
	preprocessor  *Preprocessor
	labels        []string
	confThreshold float64
	iouThreshold  float64
}

func NewOnnxBackend(cfg BackendConfig) (*OnnxBackend, error) {
	if err := requireFile("model", cfg.ModelPath); err != nil {
		return nil, err
	}
	if err := requireFile("labels", cfg.LabelsPath); err != nil {
		return nil, err
	}
	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}
	if err := initOnnxEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	threads := runtime.NumCPU() / poolSize
	if threads < 1 {
		threads = 1
	}

	pool, err := NewSessionPool(poolSize, func() (*ModelSession, error) {
		return initSession(cfg.ModelPath, len(labels), threads)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model session pool: %w", err)
	}

	conf := cfg.ConfThreshold
	if conf <= 0 {
		conf = DefaultConfThreshold
	}
	iou := cfg.IouThreshold
	if iou <= 0 {
		iou = DefaultIouThreshold
	}

	return &OnnxBackend{
		pool:          pool,
		preprocessor:  NewPreprocessor(InputWidth, InputHeight),
		labels:        labels,
		confThreshold: conf,
		iouThreshold:  iou,
	}, nil
}

func (b *OnnxBackend) Name() string { return BackendOnnx }

func (b *OnnxBackend) Infer(ctx context.Context, img image.Image) ([]models.RawDetection, error) {
	session, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire session: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= RetryAttempts; attempt++ {
		rows, err := b.run(session, img)
		if err == nil {
			b.pool.Release(session)
			return rows, nil
		}
		lastErr = err

		if attempt < RetryAttempts {
			backoff := time.Duration(attempt) * RetryDelayMs * time.Millisecond
			if err := sleepCtx(ctx, backoff); err != nil {
				b.pool.Release(session)
				return nil, err
			}
		}
	}

	b.pool.Discard(session, lastErr)
	return nil, lastErr
}

func (b *OnnxBackend) run(session *ModelSession, img image.Image) ([]models.RawDetection, error) {
	b.preprocessor.Process(img, session.Input.GetData())

	if err := session.Session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	bounds := img.Bounds()
	return decodePredictions(session.Output.GetData(), b.labels, bounds.Dx(), bounds.Dy(), b.confThreshold, b.iouThreshold)
}

// decodePredictions reads a [4+classes, anchors] YOLOv8 head: rows 0-3 are
// cx, cy, w, h in input pixels, the rest per-class scores.
func decodePredictions(predictions []float32, labels []string, origWidth, origHeight int, confThreshold, iouThreshold float64) ([]models.RawDetection, error) {
	numClasses := len(labels)
	expected := (4 + numClasses) * numAnchors
	if len(predictions) != expected {
		return nil, fmt.Errorf("unexpected predictions length: got %d, want %d", len(predictions), expected)
	}

	candidates := make([]models.RawDetection, 0, 64)
	for i := 0; i < numAnchors; i++ {
		bestClass, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			score := predictions[(4+c)*numAnchors+i]
			if score > bestScore {
				bestClass, bestScore = c, score
			}
		}
		if bestClass < 0 || float64(bestScore) < confThreshold {
			continue
		}

		x1, y1, x2, y2 := scaleBox(
			float64(predictions[i]),
			float64(predictions[numAnchors+i]),
			float64(predictions[2*numAnchors+i]),
			float64(predictions[3*numAnchors+i]),
			origWidth, origHeight,
		)
		candidates = append(candidates, models.RawDetection{
			XMin:       x1,
			YMin:       y1,
			XMax:       x2,
			YMax:       y2,
			Confidence: float64(bestScore),
			Class:      bestClass,
			Name:       labelFor(labels, bestClass),
		})
	}

	return suppressOverlaps(candidates, iouThreshold), nil
}

func (b *OnnxBackend) Stats() map[string]interface{} {
	stats := b.pool.Stats()
	stats["cpu_features"] = CPUFeatures()
	return stats
}

func (b *OnnxBackend) Close() error {
	b.pool.Destroy()
	return nil
}
