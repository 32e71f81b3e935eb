package detection

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"
	"gopkg.in/yaml.v3"

	"github.com/toolkitvision/toolcheck-go/internal/catalog"
	"github.com/toolkitvision/toolcheck-go/internal/conf"
	"github.com/toolkitvision/toolcheck-go/internal/errors"
)

// classIndexToToolID maps the model's numeric class indices to catalog
// ids. The table is fixed by the training run of the bundled model.
var classIndexToToolID = map[int]string{
	0:  "flat_screwdriver",
	1:  "double_ended_wrench",
	2:  "side_cutters",
	3:  "phillips_screwdriver",
	4:  "offset_cross_screwdriver",
	5:  "brace",
	6:  "safety_pliers",
	7:  "pliers",
	8:  "shears",
	9:  "adjustable_wrench",
	10: "oil_can_opener",
}

// LocalBackend runs inference with a TFLite model loaded from disk.
// The interpreter is not reentrant, Detect serializes access with a
// mutex; image decoding and tensor preparation happen outside the lock.
type LocalBackend struct {
	settings    conf.DetectionSettings
	interpreter *tflite.Interpreter
	classNames  map[int]string
	mu          sync.Mutex
}

// NewLocalBackend loads model weights and the class label map from the
// configured paths. Missing or malformed files fail with a configuration
// error; the resolver turns that into a mock fallback.
func NewLocalBackend(settings *conf.DetectionSettings) (*LocalBackend, error) {
	start := time.Now()

	classNames, err := loadClassNames(settings.DatasetPath)
	if err != nil {
		return nil, err
	}

	modelData, err := os.ReadFile(settings.ModelPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("cannot read model weights: %w", err)).
			Component(serviceName).
			Category(errors.CategoryModelLoad).
			ModelContext(settings.ModelPath, settings.DatasetPath).
			Timing("model-load", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Component(serviceName).
			Category(errors.CategoryModelInit).
			ModelContext(settings.ModelPath, settings.DatasetPath).
			Context("model_size_mb", len(modelData)/1024/1024).
			Build()
	}

	threads := settings.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, errors.Newf("cannot create TensorFlow Lite interpreter").
			Component(serviceName).
			Category(errors.CategoryModelInit).
			ModelContext(settings.ModelPath, settings.DatasetPath).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, errors.Newf("tensor allocation failed: %v", status).
			Component(serviceName).
			Category(errors.CategoryModelInit).
			ModelContext(settings.ModelPath, settings.DatasetPath).
			Build()
	}

	logger.Info("local detection model initialized",
		"model_path", settings.ModelPath,
		"classes", len(classNames),
		"threads", threads,
		"image_size", settings.ImageSize)

	return &LocalBackend{
		settings:    *settings,
		interpreter: interpreter,
		classNames:  classNames,
	}, nil
}

// loadClassNames parses the dataset file, a YAML mapping of class index
// to label under the "names" key.
func loadClassNames(datasetPath string) (map[int]string, error) {
	data, err := os.ReadFile(datasetPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("cannot read dataset file: %w", err)).
			Component(serviceName).
			Category(errors.CategoryLabelLoad).
			Context("dataset_path", datasetPath).
			Build()
	}

	var payload struct {
		Names map[int]string `yaml:"names"`
	}
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, errors.New(fmt.Errorf("invalid dataset file: %w", err)).
			Component(serviceName).
			Category(errors.CategoryLabelLoad).
			Context("dataset_path", datasetPath).
			Build()
	}
	if len(payload.Names) == 0 {
		return nil, errors.Newf("invalid dataset file: expected a 'names' mapping").
			Component(serviceName).
			Category(errors.CategoryLabelLoad).
			Context("dataset_path", datasetPath).
			Build()
	}
	return payload.Names, nil
}

// Detect runs inference on the image. The model emits one score per
// class; scores at or above the configured confidence become detections.
func (l *LocalBackend) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tensor, err := LoadImageTensor(imagePath, l.settings.ImageSize)
	if err != nil {
		return nil, err
	}

	scores, err := l.invoke(tensor)
	if err != nil {
		return nil, err
	}

	detections := make([]Detection, 0, len(scores))
	for index, score := range scores {
		confidence := float64(score)
		if confidence < l.settings.Confidence {
			continue
		}
		label := l.classNames[index]
		if label == "" {
			label = fmt.Sprintf("class_%d", index)
		}
		toolID := classIndexToToolID[index]
		if toolID != "" {
			if tool, ok := catalog.Lookup(toolID); ok {
				label = tool.Name
			} else {
				toolID = ""
			}
		}
		detections = append(detections, Detection{
			ToolID:     toolID,
			Label:      label,
			Confidence: round4(confidence),
		})
	}
	return detections, nil
}

// invoke feeds the tensor through the interpreter under the lock and
// copies the per-class scores out before releasing it.
func (l *LocalBackend) invoke(tensor []float32) ([]float32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	inputTensor := l.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, errors.Newf("cannot get input tensor").
			Component(serviceName).
			Category(errors.CategoryModelInit).
			Build()
	}
	copy(inputTensor.Float32s(), tensor)

	if status := l.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.Newf("tensor invoke failed: %v", status).
			Component(serviceName).
			Category(errors.CategoryImageProcessing).
			Build()
	}

	outputTensor := l.interpreter.GetOutputTensor(0)
	if outputTensor == nil {
		return nil, errors.Newf("cannot get output tensor").
			Component(serviceName).
			Category(errors.CategoryModelInit).
			Build()
	}

	raw := outputTensor.Float32s()
	scores := make([]float32, len(raw))
	copy(scores, raw)
	return scores, nil
}

// Describe implements Backend. Classes are listed in model index order.
func (l *LocalBackend) Describe() BackendInfo {
	indices := make([]int, 0, len(l.classNames))
	for index := range l.classNames {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	classes := make([]string, 0, len(indices))
	for _, index := range indices {
		classes = append(classes, l.classNames[index])
	}

	return BackendInfo{
		Backend:    KindLocal,
		Configured: true,
		Details: map[string]string{
			"model_path":           l.settings.ModelPath,
			"dataset_path":         l.settings.DatasetPath,
			"confidence_threshold": strconv.FormatFloat(l.settings.Confidence, 'f', -1, 64),
			"image_size":           strconv.Itoa(l.settings.ImageSize),
			"device":               l.settings.Device,
		},
		Classes: classes,
	}
}
