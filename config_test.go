package main

import (
	"testing"
	"time"

	"github.com/Tutortoise/threat-detection-service/detections"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"HOST", "PORT", "MODEL_BACKEND", "MODEL_POOL_SIZE", "PLACEHOLDER_LATENCY_MS",
		"REMOTE_TIMEOUT_SECONDS", "CONF_THRESHOLD", "MAX_UPLOAD_MB", "DEBUG",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr() = %q, expected 0.0.0.0:8000", cfg.Addr())
	}
	if cfg.ModelBackend != detections.BackendPlaceholder {
		t.Errorf("ModelBackend = %q, expected placeholder", cfg.ModelBackend)
	}
	if cfg.PlaceholderLatency != detections.DefaultPlaceholderLatency {
		t.Errorf("PlaceholderLatency = %v", cfg.PlaceholderLatency)
	}
	if cfg.PoolSize != detections.DefaultPoolSize {
		t.Errorf("PoolSize = %d", cfg.PoolSize)
	}
	if cfg.MaxUploadBytes() != 10<<20 {
		t.Errorf("MaxUploadBytes() = %d", cfg.MaxUploadBytes())
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9100")
	t.Setenv("MODEL_BACKEND", "ONNX")
	t.Setenv("MODEL_POOL_SIZE", "2")
	t.Setenv("PLACEHOLDER_LATENCY_MS", "250")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "3")
	t.Setenv("CONF_THRESHOLD", "0.4")
	t.Setenv("DEBUG", "true")

	cfg := LoadConfig()
	if cfg.Addr() != "127.0.0.1:9100" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.ModelBackend != detections.BackendOnnx {
		t.Errorf("ModelBackend = %q, expected onnx", cfg.ModelBackend)
	}

	bc := cfg.BackendConfig()
	if bc.PoolSize != 2 || bc.Latency != 250*time.Millisecond || bc.RemoteTimeout != 3*time.Second {
		t.Errorf("unexpected backend config: %+v", bc)
	}
	if bc.ConfThreshold != 0.4 {
		t.Errorf("ConfThreshold = %v", bc.ConfThreshold)
	}
	if !cfg.Debug {
		t.Error("Debug should be enabled")
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("MODEL_POOL_SIZE", "many")
	t.Setenv("PLACEHOLDER_LATENCY_MS", "-5")
	t.Setenv("IOU_THRESHOLD", "high")

	cfg := LoadConfig()
	if cfg.PoolSize != detections.DefaultPoolSize {
		t.Errorf("PoolSize = %d, expected default", cfg.PoolSize)
	}
	if cfg.PlaceholderLatency != detections.DefaultPlaceholderLatency {
		t.Errorf("PlaceholderLatency = %v, expected default", cfg.PlaceholderLatency)
	}
	if cfg.IouThreshold != detections.DefaultIouThreshold {
		t.Errorf("IouThreshold = %v, expected default", cfg.IouThreshold)
	}
}

func TestLoadConfig_NonPositiveUploadLimit(t *testing.T) {
	for _, v := range []string{"0", "-3"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("MAX_UPLOAD_MB", v)
			cfg := LoadConfig()
			if cfg.MaxUploadMB != DefaultMaxUploadMB {
				t.Errorf("MaxUploadMB = %d, expected %d", cfg.MaxUploadMB, DefaultMaxUploadMB)
			}
		})
	}

	zero := &Config{}
	if zero.MaxUploadBytes() != DefaultMaxUploadMB<<20 {
		t.Errorf("MaxUploadBytes() on a zero config = %d", zero.MaxUploadBytes())
	}
}
