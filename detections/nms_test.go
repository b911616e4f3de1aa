package detections

import (
	"math"
	"testing"

	"github.com/Tutortoise/threat-detection-service/models"
)

func TestCalculateIOU(t *testing.T) {
	tests := []struct {
		name     string
		a, b     models.RawDetection
		expected float64
	}{
		{
			name:     "identical",
			a:        models.RawDetection{XMax: 10, YMax: 10},
			b:        models.RawDetection{XMax: 10, YMax: 10},
			expected: 1,
		},
		{
			name:     "disjoint",
			a:        models.RawDetection{XMax: 10, YMax: 10},
			b:        models.RawDetection{XMin: 20, YMin: 20, XMax: 30, YMax: 30},
			expected: 0,
		},
		{
			name:     "half overlap",
			a:        models.RawDetection{XMax: 10, YMax: 10},
			b:        models.RawDetection{XMin: 5, XMax: 15, YMax: 10},
			expected: 50.0 / 150.0,
		},
		{
			name:     "degenerate boxes",
			a:        models.RawDetection{},
			b:        models.RawDetection{},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateIOU(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("calculateIOU = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestSuppressOverlaps(t *testing.T) {
	candidates := []models.RawDetection{
		{XMin: 0, YMin: 0, XMax: 100, YMax: 100, Confidence: 0.6, Class: 0, Name: "person"},
		{XMin: 2, YMin: 2, XMax: 102, YMax: 102, Confidence: 0.9, Class: 0, Name: "person"},
		{XMin: 1, YMin: 1, XMax: 101, YMax: 101, Confidence: 0.8, Class: 1, Name: "weapon"},
		{XMin: 300, YMin: 300, XMax: 350, YMax: 350, Confidence: 0.5, Class: 0, Name: "person"},
	}

	kept := suppressOverlaps(candidates, DefaultIouThreshold)
	if len(kept) != 3 {
		t.Fatalf("kept %d boxes, expected 3: %+v", len(kept), kept)
	}

	wantConf := []float64{0.9, 0.8, 0.5}
	for i, c := range wantConf {
		if kept[i].Confidence != c {
			t.Errorf("kept[%d].Confidence = %v, expected %v", i, kept[i].Confidence, c)
		}
	}
	if candidates[0].Confidence != 0.6 {
		t.Error("suppressOverlaps must not reorder its input")
	}
}

func TestSuppressOverlaps_Empty(t *testing.T) {
	if kept := suppressOverlaps(nil, 0.5); kept != nil {
		t.Errorf("expected nil, got %v", kept)
	}
}

func TestScaleBox(t *testing.T) {
	x1, y1, x2, y2 := scaleBox(320, 320, 64, 128, 1280, 640)
	if x1 != 576 || y1 != 256 || x2 != 704 || y2 != 384 {
		t.Errorf("scaleBox = (%v, %v, %v, %v)", x1, y1, x2, y2)
	}

	// Boxes hanging off the frame are clamped to it.
	x1, y1, x2, y2 = scaleBox(0, 0, 100, 100, 640, 640)
	if x1 != 0 || y1 != 0 || x2 != 50 || y2 != 50 {
		t.Errorf("clamped scaleBox = (%v, %v, %v, %v)", x1, y1, x2, y2)
	}
}

func TestDecodePredictions(t *testing.T) {
	labels := []string{"person", "weapon"}
	predictions := make([]float32, (4+len(labels))*numAnchors)
	set := func(anchor int, cx, cy, w, h, personScore, weaponScore float32) {
		predictions[anchor] = cx
		predictions[numAnchors+anchor] = cy
		predictions[2*numAnchors+anchor] = w
		predictions[3*numAnchors+anchor] = h
		predictions[4*numAnchors+anchor] = personScore
		predictions[5*numAnchors+anchor] = weaponScore
	}
	set(10, 100, 100, 50, 50, 0.9, 0.1)
	set(11, 102, 101, 50, 50, 0.8, 0.05) // suppressed by anchor 10
	set(12, 400, 400, 40, 40, 0.2, 0.85)
	set(13, 500, 500, 40, 40, 0.1, 0.1) // below threshold

	rows, err := decodePredictions(predictions, labels, InputWidth, InputHeight, DefaultConfThreshold, DefaultIouThreshold)
	if err != nil {
		t.Fatalf("decodePredictions failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, expected 2: %+v", len(rows), rows)
	}
	if rows[0].Name != "person" || rows[1].Name != "weapon" {
		t.Errorf("unexpected classes: %+v", rows)
	}
	if rows[1].Class != 1 {
		t.Errorf("weapon class id = %d, expected 1", rows[1].Class)
	}
	if math.Abs(rows[0].XMin-75) > 1e-3 || math.Abs(rows[0].XMax-125) > 1e-3 {
		t.Errorf("person box = %+v", rows[0])
	}
}

func TestDecodePredictions_WrongLength(t *testing.T) {
	if _, err := decodePredictions(make([]float32, 10), []string{"a"}, 640, 640, 0.25, 0.45); err == nil {
		t.Error("expected a length mismatch error")
	}
}
