package ensemble

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Classifier is one pretrained model in the ensemble. Predict runs a
// single stochastic forward pass over a preprocessed CHW tensor and
// returns the per-class probability vector. Models are exported with
// dropout active so repeated passes differ.
type Classifier interface {
	Name() string
	NumClasses() int
	Predict(input []float32) ([]float32, error)
	Close() error
}

var runtimeOnce sync.Once

// InitializeRuntime brings up the shared onnxruntime environment.
// Safe to call more than once.
func InitializeRuntime() error {
	var err error
	runtimeOnce.Do(func() {
		err = ort.InitializeEnvironment()
	})
	return err
}

// DestroyRuntime tears down the shared environment at process exit.
func DestroyRuntime() {
	ort.DestroyEnvironment()
}

// onnxClassifier wraps one ONNX session with preallocated IO tensors.
// The tensors are reused across calls, so a mutex serializes passes.
type onnxClassifier struct {
	name         string
	numClasses   int
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNXClassifier loads a model expecting [1,3,size,size] float32
// input and [1,numClasses] float32 output.
func NewONNXClassifier(name, modelPath string, size int, numClasses int) (Classifier, error) {
	inputShape := ort.NewShape(1, 3, int64(size), int64(size))
	outputShape := ort.NewShape(1, int64(numClasses))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", name, err)
	}

	return &onnxClassifier{
		name:         name,
		numClasses:   numClasses,
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (c *onnxClassifier) Name() string    { return c.name }
func (c *onnxClassifier) NumClasses() int { return c.numClasses }

func (c *onnxClassifier) Predict(input []float32) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("expected %d input values, got %d", len(data), len(input))
	}
	copy(data, input)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := make([]float32, c.numClasses)
	copy(out, c.outputTensor.GetData())
	return out, nil
}

func (c *onnxClassifier) Close() error {
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
	if c.session != nil {
		c.session.Destroy()
	}
	return nil
}
