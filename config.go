package main

import (
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tutortoise/threat-detection-service/detections"

	"github.com/joho/godotenv"
)

const DefaultMaxUploadMB = 10

type Config struct {
	Host string
	Port string

	ModelBackend       string
	ModelPath          string
	ModelConfigPath    string
	LabelsPath         string
	OnnxLibraryPath    string
	PoolSize           int
	PlaceholderLatency time.Duration
	RemoteURL          string
	RemoteTimeout      time.Duration
	ConfThreshold      float64
	IouThreshold       float64

	MaxUploadMB  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	LogDir string
	Debug  bool
}

func LoadConfig() *Config {
	// A missing .env file is fine; the process environment still applies.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file: %v", err)
	}

	return &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnv("PORT", "8000"),
		ModelBackend:       strings.ToLower(getEnv("MODEL_BACKEND", detections.BackendPlaceholder)),
		ModelPath:          getEnv("MODEL_PATH", "models/yolov8s.onnx"),
		ModelConfigPath:    getEnv("MODEL_CONFIG_PATH", ""),
		LabelsPath:         getEnv("MODEL_LABELS_PATH", "models/labels.txt"),
		OnnxLibraryPath:    getEnv("ONNX_LIBRARY_PATH", ""),
		PoolSize:           getEnvInt("MODEL_POOL_SIZE", detections.DefaultPoolSize),
		PlaceholderLatency: getEnvDuration("PLACEHOLDER_LATENCY_MS", time.Millisecond, detections.DefaultPlaceholderLatency),
		RemoteURL:          getEnv("REMOTE_INFERENCE_URL", ""),
		RemoteTimeout:      getEnvDuration("REMOTE_TIMEOUT_SECONDS", time.Second, detections.DefaultRemoteTimeout),
		ConfThreshold:      getEnvFloat("CONF_THRESHOLD", detections.DefaultConfThreshold),
		IouThreshold:       getEnvFloat("IOU_THRESHOLD", detections.DefaultIouThreshold),
		MaxUploadMB:        getEnvPositiveInt("MAX_UPLOAD_MB", DefaultMaxUploadMB),
		ReadTimeout:        getEnvDuration("READ_TIMEOUT_SECONDS", time.Second, 60*time.Second),
		WriteTimeout:       getEnvDuration("WRITE_TIMEOUT_SECONDS", time.Second, 60*time.Second),
		LogDir:             getEnv("LOG_DIR", ""),
		Debug:              getEnv("DEBUG", "false") == "true",
	}
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) BackendConfig() detections.BackendConfig {
	return detections.BackendConfig{
		Kind:          c.ModelBackend,
		ModelPath:     c.ModelPath,
		ConfigPath:    c.ModelConfigPath,
		LabelsPath:    c.LabelsPath,
		LibraryPath:   c.OnnxLibraryPath,
		PoolSize:      c.PoolSize,
		Latency:       c.PlaceholderLatency,
		RemoteURL:     c.RemoteURL,
		RemoteTimeout: c.RemoteTimeout,
		ConfThreshold: c.ConfThreshold,
		IouThreshold:  c.IouThreshold,
	}
}

func (c *Config) MaxUploadBytes() int64 {
	mb := c.MaxUploadMB
	if mb <= 0 {
		mb = DefaultMaxUploadMB
	}
	return int64(mb) << 20
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvPositiveInt(key string, defaultVal int) int {
	if v := getEnvInt(key, defaultVal); v > 0 {
		return v
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvDuration reads an integer count of unit.
func getEnvDuration(key string, unit, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return time.Duration(n) * unit
		}
	}
	return defaultVal
}
