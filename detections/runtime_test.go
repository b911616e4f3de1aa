package detections

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	content := "# threat model v2\nperson\n\n  car  \nweapon\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write labels: %v", err)
	}

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}
	expected := []string{"person", "car", "weapon"}
	if len(labels) != len(expected) {
		t.Fatalf("got %v, expected %v", labels, expected)
	}
	for i := range expected {
		if labels[i] != expected[i] {
			t.Errorf("labels[%d] = %q, expected %q", i, labels[i], expected[i])
		}
	}
}

func TestLoadLabels_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadLabels(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected an error for a missing file")
	}

	empty := filepath.Join(dir, "empty.txt")
	os.WriteFile(empty, []byte("# nothing here\n\n"), 0644)
	if _, err := LoadLabels(empty); err == nil {
		t.Error("expected an error for an empty labels file")
	}
}

func TestLabelFor(t *testing.T) {
	labels := []string{"person", "car"}
	if got := labelFor(labels, 1); got != "car" {
		t.Errorf("labelFor(1) = %q", got)
	}
	if got := labelFor(labels, 7); got != "class7" {
		t.Errorf("labelFor(7) = %q", got)
	}
}

func TestNewOnnxBackend_MissingModel(t *testing.T) {
	_, err := NewOnnxBackend(BackendConfig{
		Kind:       BackendOnnx,
		ModelPath:  filepath.Join(t.TempDir(), "absent.onnx"),
		LabelsPath: filepath.Join(t.TempDir(), "labels.txt"),
	})
	if err == nil {
		t.Fatal("expected an error when the model file is missing")
	}
}

func TestCPUFeatures(t *testing.T) {
	features := CPUFeatures()
	for _, key := range []string{"avx512", "avx2", "sse41", "neon"} {
		if _, ok := features[key]; !ok {
			t.Errorf("missing feature key %q", key)
		}
	}
}
