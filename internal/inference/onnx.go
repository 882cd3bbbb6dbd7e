package inference

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"classifier-service/internal/config"
	"classifier-service/internal/conversion"
	"classifier-service/internal/models"
)

// ONNXEngine runs the classification model through ONNX Runtime. The session
// owns one preallocated input/output tensor pair, so runs are serialized
// behind a mutex.
type ONNXEngine struct {
	mu sync.Mutex

	modelPath  string
	labelsPath string
	inputName  string
	outputName string
	targetSize int

	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	classNames   []string
}

var _ Engine = (*ONNXEngine)(nil)

func NewONNXEngine(cfg *config.Config) *ONNXEngine {
	return &ONNXEngine{
		modelPath:  cfg.ModelPath,
		labelsPath: cfg.LabelsPath,
		inputName:  cfg.ModelInputName,
		outputName: cfg.ModelOutputName,
		targetSize: cfg.TargetImageSize,
	}
}

// Load initializes the runtime environment, reads the labels file and builds
// the session. On failure the engine stays not ready and the service can
// still start degraded; predictions then fail with ErrModelNotLoaded until a
// restart with a working model.
func (e *ONNXEngine) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		return nil
	}

	classNames, err := LoadLabels(e.labelsPath)
	if err != nil {
		return errors.Wrap(err, "load labels")
	}
	if len(classNames) == 0 {
		return errors.Errorf("labels file %s contains no classes", e.labelsPath)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return errors.Wrap(err, "initialize onnx runtime environment")
		}
	}

	inputShape := ort.NewShape(1, int64(e.targetSize), int64(e.targetSize), 3)
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return errors.Wrap(err, "create input tensor")
	}

	outputShape := ort.NewShape(1, int64(len(classNames)))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return errors.Wrap(err, "create output tensor")
	}

	session, err := ort.NewAdvancedSession(e.modelPath,
		[]string{e.inputName}, []string{e.outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return errors.Wrap(err, "create onnx session")
	}

	e.session = session
	e.inputTensor = inputTensor
	e.outputTensor = outputTensor
	e.classNames = classNames
	log.Printf("Model loaded: %s (%d classes, input %q, output %q)",
		e.modelPath, len(classNames), e.inputName, e.outputName)
	return nil
}

func (e *ONNXEngine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil && len(e.classNames) > 0
}

func (e *ONNXEngine) Infer(t *conversion.Tensor) ([]models.ClassScore, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, models.ErrModelNotLoaded
	}

	in := e.inputTensor.GetData()
	if len(t.Data) != len(in) {
		return nil, errors.Errorf("input tensor has %d values, model expects %d", len(t.Data), len(in))
	}
	copy(in, t.Data)

	if err := e.session.Run(); err != nil {
		return nil, errors.Wrap(err, "onnx session run")
	}
	return buildScores(e.classNames, e.outputTensor.GetData()), nil
}

func (e *ONNXEngine) Warmup() error {
	if !e.Ready() {
		return models.ErrModelNotLoaded
	}
	start := time.Now()
	if _, err := e.Infer(conversion.SyntheticTensor(e.targetSize)); err != nil {
		return errors.Wrap(err, "warmup inference")
	}
	log.Printf("Model warmup completed in %dms", time.Since(start).Milliseconds())
	return nil
}

func (e *ONNXEngine) Info() models.ModelInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return models.ModelInfo{
			Status:     "not_loaded",
			ModelPath:  e.modelPath,
			LabelsPath: e.labelsPath,
		}
	}
	classes := make([]string, len(e.classNames))
	copy(classes, e.classNames)
	return models.ModelInfo{
		Status:     "ready",
		ModelPath:  e.modelPath,
		LabelsPath: e.labelsPath,
		Framework:  "onnxruntime",
		Device:     "cpu",
		InputName:  e.inputName,
		OutputName: e.outputName,
		NumClasses: len(classes),
		Classes:    classes,
	}
}

func (e *ONNXEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	e.classNames = nil
	if ort.IsInitialized() {
		return ort.DestroyEnvironment()
	}
	return nil
}
