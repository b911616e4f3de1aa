package models

import "time"

// RawDetection is one row produced by a detection backend, before mapping.
type RawDetection struct {
	XMin       float64
	YMin       float64
	XMax       float64
	YMax       float64
	Confidence float64
	Class      int
	Name       string
}

type Detection struct {
	ClassID    int        `json:"class_id"`
	ClassName  string     `json:"class_name"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
	IsThreat   bool       `json:"is_threat"`
}

type AnalysisResponse struct {
	Timestamp        float64     `json:"timestamp"`
	FrameID          string      `json:"frame_id"`
	Detections       []Detection `json:"detections"`
	ThreatDetected   bool        `json:"threat_detected"`
	ProcessingTimeMs float64     `json:"processing_time_ms"`
}

type HealthResponse struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
}

type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	ModelLoad   time.Duration
	Inference   time.Duration
	Mapping     time.Duration
	Total       time.Duration
}

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
