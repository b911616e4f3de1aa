package detections

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"time"

	"github.com/Tutortoise/threat-detection-service/models"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Logger is the subset of the service logger used while analysing frames.
type Logger interface {
	Warning(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type Analyzer struct {
	provider *Provider
	log      Logger
	now      func() time.Time
}

func NewAnalyzer(provider *Provider, log Logger) *Analyzer {
	return &Analyzer{
		provider: provider,
		log:      log,
		now:      time.Now,
	}
}

// Analyze decodes imageBytes, runs the cached backend over it and assembles
// the timed response. Detections keep the backend's order.
func (a *Analyzer) Analyze(ctx context.Context, imageBytes []byte, filename string) (*models.AnalysisResponse, error) {
	start := a.now()
	timings := &models.ProcessingTimings{RequestID: strconv.FormatInt(start.UnixNano(), 10)}

	decodeStart := time.Now()
	img, err := DecodeImage(imageBytes)
	timings.ImageDecode = time.Since(decodeStart)
	if err != nil {
		return nil, imageDecodeError(err)
	}

	loadStart := time.Now()
	backend, err := a.provider.GetOrCreate(ctx)
	timings.ModelLoad = time.Since(loadStart)
	if err != nil {
		return nil, err
	}

	inferStart := time.Now()
	rows, err := backend.Infer(ctx, img)
	timings.Inference = time.Since(inferStart)
	if err != nil {
		return nil, inferenceError(err)
	}

	for i, row := range rows {
		if err := validateRow(i, row); err != nil {
			return nil, inferenceError(err)
		}
	}

	mapStart := time.Now()
	detections := make([]models.Detection, 0, len(rows))
	threatDetected := false
	for _, row := range rows {
		detection := models.Detection{
			ClassID:    row.Class,
			ClassName:  row.Name,
			Confidence: row.Confidence,
			BBox:       [4]float64{row.XMin, row.YMin, row.XMax, row.YMax},
			IsThreat:   IsThreat(row.Name, row.Confidence),
		}
		if detection.IsThreat {
			threatDetected = true
			a.log.Warning("Threat detected: %s with confidence %v", detection.ClassName, detection.Confidence)
		}
		detections = append(detections, detection)
	}
	timings.Mapping = time.Since(mapStart)

	end := a.now()
	frameID := filename
	if frameID == "" {
		frameID = strconv.FormatInt(end.Unix(), 10)
	}

	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	timings.Total = elapsed
	a.logTimings(backend.Name(), timings)

	return &models.AnalysisResponse{
		Timestamp:        models.EpochSeconds(end),
		FrameID:          frameID,
		Detections:       detections,
		ThreatDetected:   threatDetected,
		ProcessingTimeMs: float64(elapsed) / float64(time.Millisecond),
	}, nil
}

func (a *Analyzer) logTimings(backend string, t *models.ProcessingTimings) {
	a.log.Debug("RequestID: %s - Processing times (%s):\n"+
		"\tImage Decode: %v\n"+
		"\tModel Load:   %v\n"+
		"\tInference:    %v\n"+
		"\tMapping:      %v\n"+
		"\tTotal:        %v",
		t.RequestID,
		backend,
		t.ImageDecode,
		t.ModelLoad,
		t.Inference,
		t.Mapping,
		t.Total)
}

// DecodeImage decodes a still image, applying EXIF orientation.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy())
	}
	return img, nil
}
