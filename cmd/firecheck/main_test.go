package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
}

func setupImages(t *testing.T) (string, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "firecheck_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	writePNG(t, filepath.Join(tempDir, "bright.png"), color.RGBA{255, 255, 255, 255})
	writePNG(t, filepath.Join(tempDir, "dark.png"), color.RGBA{10, 10, 10, 255})
	return tempDir, func() { os.RemoveAll(tempDir) }
}

func decode(t *testing.T, out *bytes.Buffer) map[string]interface{} {
	t.Helper()

	line := strings.TrimSpace(out.String())
	if strings.Contains(line, "\n") {
		t.Fatalf("Expected a single JSON line, got %q", line)
	}
	var v map[string]interface{}
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		t.Fatalf("Output is not JSON: %v (%q)", err, line)
	}
	return v
}

func TestRun_MissingImage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"firecheck", "/does/not/exist.jpg"}, &stdout, &stderr)

	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	expected := `{"error":"Image not found: /does/not/exist.jpg","fire":false,"confidence":0}`
	if strings.TrimSpace(stdout.String()) != expected {
		t.Errorf("Expected %s, got %s", expected, stdout.String())
	}
}

func TestRun_CorruptImage(t *testing.T) {
	dir, cleanup := setupImages(t)
	defer cleanup()

	path := filepath.Join(dir, "corrupt.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := run([]string{"firecheck", "--model", filepath.Join(dir, "missing.onnx"), path}, &stdout, &stderr)

	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	expected := `{"error":"Invalid image: ` + path + `","fire":false,"confidence":0}`
	if strings.TrimSpace(stdout.String()) != expected {
		t.Errorf("Expected %s, got %s", expected, stdout.String())
	}
}

func TestRun_MissingArgument(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"firecheck"}, &stdout, &stderr)

	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	v := decode(t, &stdout)
	if v["fire"] != false || v["error"] == nil {
		t.Errorf("Expected error result, got %v", v)
	}
}

func TestRun_Heuristic(t *testing.T) {
	dir, cleanup := setupImages(t)
	defer cleanup()
	model := filepath.Join(dir, "missing.onnx")

	tests := []struct {
		image      string
		fire       bool
		confidence float64
	}{
		{"bright.png", true, 0.95},
		{"dark.png", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.image, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run([]string{"firecheck", "--model", model, filepath.Join(dir, tt.image)}, &stdout, &stderr)
			if code != 0 {
				t.Fatalf("Expected exit code 0, got %d (%s)", code, stdout.String())
			}

			v := decode(t, &stdout)
			if v["fire"] != tt.fire {
				t.Errorf("Expected fire=%v, got %v", tt.fire, v["fire"])
			}
			if v["confidence"] != tt.confidence {
				t.Errorf("Expected confidence %v, got %v", tt.confidence, v["confidence"])
			}
			if _, ok := v["source"]; ok {
				t.Error("Expected no source without --debug")
			}
		})
	}
}

func TestRun_Mock(t *testing.T) {
	dir, cleanup := setupImages(t)
	defer cleanup()

	firePath := filepath.Join(dir, "kitchen_fire.png")
	writePNG(t, firePath, color.RGBA{0, 0, 0, 255})

	var stdout, stderr bytes.Buffer
	code := run([]string{"firecheck", "--mock", firePath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}

	v := decode(t, &stdout)
	conf, _ := v["confidence"].(float64)
	if v["fire"] != true || conf < 0.7 || conf > 0.95 {
		t.Errorf("Expected mock fire verdict, got %v", v)
	}
}

func TestRun_DebugWritesDiagnosticsToStderr(t *testing.T) {
	dir, cleanup := setupImages(t)
	defer cleanup()

	var stdout, stderr bytes.Buffer
	code := run([]string{"firecheck", "--debug", "--model", filepath.Join(dir, "missing.onnx"),
		filepath.Join(dir, "bright.png")}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}

	v := decode(t, &stdout)
	if v["source"] != "heuristic-color" {
		t.Errorf("Expected heuristic source, got %v", v["source"])
	}
	if !strings.Contains(stderr.String(), "16x16") {
		t.Errorf("Expected image size in diagnostics, got %q", stderr.String())
	}
}

func TestRun_MockIgnoresDirectoryName(t *testing.T) {
	dir, cleanup := setupImages(t)
	defer cleanup()

	// the temp dir is named firecheck_test, so only the file name may count
	path := filepath.Join(dir, "living_room.png")
	writePNG(t, path, color.RGBA{255, 255, 255, 255})

	var stdout, stderr bytes.Buffer
	code := run([]string{"firecheck", "--mock", path}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("Expected exit code 0, got %d", code)
	}

	v := decode(t, &stdout)
	conf, _ := v["confidence"].(float64)
	if v["fire"] != false || conf > 0.3 {
		t.Errorf("Expected mock clear verdict, got %v", v)
	}
}
