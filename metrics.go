package main

import (
	"sync/atomic"
	"time"
)

type Metrics struct {
	startedAt time.Time

	totalRequests   atomic.Int64
	totalDetections atomic.Int64
	totalThreats    atomic.Int64
	threatFrames    atomic.Int64
	totalLatencyUs  atomic.Int64
	lastFrameTime   atomic.Int64

	invalidRequests atomic.Int64
	oversizeUploads atomic.Int64
	decodeErrors    atomic.Int64
	modelErrors     atomic.Int64
	inferenceErrors atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

func (m *Metrics) RecordFrame(detections, threats int, latency time.Duration) {
	m.totalRequests.Add(1)
	m.totalDetections.Add(int64(detections))
	m.totalThreats.Add(int64(threats))
	if threats > 0 {
		m.threatFrames.Add(1)
	}
	m.totalLatencyUs.Add(latency.Microseconds())
	m.lastFrameTime.Store(time.Now().Unix())
}

func (m *Metrics) RecordFailure(code string) {
	switch code {
	case CodeInvalidRequest:
		m.invalidRequests.Add(1)
	case CodeUploadTooLarge:
		m.oversizeUploads.Add(1)
	case CodeInvalidImage:
		m.decodeErrors.Add(1)
	case CodeModelUnavailable:
		m.modelErrors.Add(1)
	default:
		m.inferenceErrors.Add(1)
	}
}

func (m *Metrics) GetAvgLatencyMs() float64 {
	frames := m.totalRequests.Load()
	if frames == 0 {
		return 0
	}
	return float64(m.totalLatencyUs.Load()) / float64(frames) / 1000
}

func (m *Metrics) Snapshot() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds":   time.Since(m.startedAt).Seconds(),
		"frames_processed": m.totalRequests.Load(),
		"detections":       m.totalDetections.Load(),
		"threats":          m.totalThreats.Load(),
		"threat_frames":    m.threatFrames.Load(),
		"avg_latency_ms":   m.GetAvgLatencyMs(),
		"last_frame_time":  m.lastFrameTime.Load(),
		"errors": map[string]int64{
			CodeInvalidRequest:   m.invalidRequests.Load(),
			CodeUploadTooLarge:   m.oversizeUploads.Load(),
			CodeInvalidImage:     m.decodeErrors.Load(),
			CodeModelUnavailable: m.modelErrors.Load(),
			CodeInferenceError:   m.inferenceErrors.Load(),
		},
	}
}
