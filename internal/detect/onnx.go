package detect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"
)

const (
	inputSize  = 640
	numAnchors = 8400 // (640/8)^2 + (640/16)^2 + (640/32)^2
)

// ONNXDetector runs a YOLOv8-style detection model through onnxruntime.
// The bundle directory holds detector.onnx, label_map.json, and an optional
// thresholds.yaml with per-class cutoffs.
type ONNXDetector struct {
	session    *ort.AdvancedSession
	labels     []string
	thresholds Thresholds

	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadONNXDetector initializes the ONNX session and reusable tensors.
func LoadONNXDetector(bundleDir string, defaultConfidence float32) (*ONNXDetector, error) {
	if bundleDir == "" {
		return nil, errors.New("bundleDir is empty")
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(bundleDir, "detector.onnx")
	labelsPath := filepath.Join(bundleDir, "label_map.json")
	thresholdsPath := filepath.Join(bundleDir, "thresholds.yaml")

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	labels, err := loadLabels(labelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}

	perClass, err := loadClassThresholds(thresholdsPath)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}
	if defaultConfidence <= 0 {
		defaultConfidence = DefaultConfidence
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, inputSize, inputSize))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(labels)), numAnchors))
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXDetector{
		session:    session,
		labels:     labels,
		thresholds: Thresholds{Default: defaultConfidence, PerClass: perClass},
		input:      input,
		output:     output,
	}, nil
}

// Detect runs one frame through the model and decodes detections for the
// target classes. The timestamp is unused; the model sees pixels only.
// The session is serialized with a mutex; tensors are reused across calls.
func (d *ONNXDetector) Detect(ctx context.Context, frame image.Image, _ time.Time) ([]Detection, error) {
	if d == nil || d.session == nil {
		return nil, errors.New("onnx detector not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lb := letterbox(frame, inputSize)

	d.mu.Lock()
	defer d.mu.Unlock()

	copy(d.input.GetData(), lb.pixels)
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	return d.decode(d.output.GetData(), lb), nil
}

// Close releases the session and tensors.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	return nil
}

// decode reads the [1, 4+classes, anchors] output layout: rows 0..3 are
// cx, cy, w, h in letterboxed coordinates, remaining rows are class scores.
func (d *ONNXDetector) decode(raw []float32, lb letterboxed) []Detection {
	numClasses := len(d.labels)
	var dets []Detection

	for a := 0; a < numAnchors; a++ {
		bestClass := -1
		var bestScore float32
		for c := 0; c < numClasses; c++ {
			score := raw[(4+c)*numAnchors+a]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestClass < 0 {
			continue
		}
		name := d.labels[bestClass]
		if !isTargetClass(name) {
			continue
		}
		if bestScore < d.thresholds.For(name) {
			continue
		}

		cx := raw[0*numAnchors+a]
		cy := raw[1*numAnchors+a]
		w := raw[2*numAnchors+a]
		h := raw[3*numAnchors+a]

		dets = append(dets, Detection{
			Label:      name,
			Confidence: bestScore,
			Box:        lb.unmap(cx, cy, w, h),
		})
	}

	return nonMaxSuppression(dets, defaultIoUThreshold)
}

// letterboxed carries the scaled pixel buffer plus the mapping needed to
// translate model coordinates back to the source frame.
type letterboxed struct {
	pixels []float32
	scale  float64
	padX   int
	padY   int
	srcW   int
	srcH   int
}

// letterbox scales the frame to fit size x size preserving aspect ratio,
// pads the remainder, and emits normalized CHW float32 pixels.
func letterbox(img image.Image, size int) letterboxed {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	scale := float64(size) / float64(srcW)
	if s := float64(size) / float64(srcH); s < scale {
		scale = s
	}
	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)
	padX := (size - scaledW) / 2
	padY := (size - scaledH) / 2

	pixels := make([]float32, 3*size*size)
	plane := size * size

	for y := 0; y < scaledH; y++ {
		srcY := b.Min.Y + int(float64(y)/scale)
		for x := 0; x < scaledW; x++ {
			srcX := b.Min.X + int(float64(x)/scale)
			r, g, bl, _ := img.At(srcX, srcY).RGBA()
			idx := (y+padY)*size + (x + padX)
			pixels[idx] = float32(r>>8) / 255.0
			pixels[plane+idx] = float32(g>>8) / 255.0
			pixels[2*plane+idx] = float32(bl>>8) / 255.0
		}
	}

	return letterboxed{pixels: pixels, scale: scale, padX: padX, padY: padY, srcW: srcW, srcH: srcH}
}

// unmap converts a model-space center box back to source-frame pixel bounds.
func (l letterboxed) unmap(cx, cy, w, h float32) image.Rectangle {
	x1 := (float64(cx-w/2) - float64(l.padX)) / l.scale
	y1 := (float64(cy-h/2) - float64(l.padY)) / l.scale
	x2 := (float64(cx+w/2) - float64(l.padX)) / l.scale
	y2 := (float64(cy+h/2) - float64(l.padY)) / l.scale

	rect := image.Rect(int(x1), int(y1), int(x2), int(y2))
	return rect.Intersect(image.Rect(0, 0, l.srcW, l.srcH))
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

func loadClassThresholds(path string) (map[string]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var wrapper struct {
		Thresholds map[string]float32 `yaml:"thresholds"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	return wrapper.Thresholds, nil
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime shared
// library. ONNXRUNTIME_SHARED_LIBRARY_PATH wins; otherwise common names and
// locations are probed.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
