package detections

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/sys/cpu"
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initOnnxEnvironment loads the ONNX Runtime shared library once per process.
func initOnnxEnvironment(libPath string) error {
	ortInitOnce.Do(func() {
		resolved, err := resolveLibraryPath(libPath)
		if err != nil {
			ortInitErr = err
			return
		}
		ort.SetSharedLibraryPath(resolved)
		if err := ort.InitializeEnvironment(); err != nil {
			ortInitErr = fmt.Errorf("initialize ONNX environment: %w", err)
		}
	})
	return ortInitErr
}

// resolveLibraryPath falls back to the platform default library name in the
// working directory's lib/ folder when no path is configured.
func resolveLibraryPath(libPath string) (string, error) {
	if libPath == "" {
		libPath = filepath.Join("lib", defaultLibraryName())
	}
	abs, err := filepath.Abs(libPath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return "", fmt.Errorf("onnxruntime library not found: %s", abs)
	}
	return abs, nil
}

func defaultLibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.1.20.0.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so.1.20.0"
	}
}

func requireFile(kind, path string) error {
	if path == "" {
		return fmt.Errorf("%s path is not configured", kind)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%s file not found: %s", kind, path)
	}
	return nil
}

// LoadLabels reads one class name per line; blank lines and lines starting
// with '#' are skipped.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

func labelFor(labels []string, class int) string {
	if class >= 0 && class < len(labels) {
		return labels[class]
	}
	return fmt.Sprintf("class%d", class)
}

// CPUFeatures reports the SIMD extensions available to the inference runtime.
func CPUFeatures() map[string]bool {
	return map[string]bool{
		"avx512": cpu.X86.HasAVX512F,
		"avx2":   cpu.X86.HasAVX2,
		"sse41":  cpu.X86.HasSSE41,
		"neon":   cpu.ARM64.HasASIMD,
	}
}
