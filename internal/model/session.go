package model

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Session is an opaque inference handle owned exclusively by the Loader.
// Implementations are not required to be safe for concurrent Run calls;
// the Loader serializes access.
type Session interface {
	// Descriptor returns the descriptor this session was created from.
	Descriptor() Descriptor
	// Run executes a single forward pass over a channel-first input tensor
	// of length 3*InputSize*InputSize and returns the flattened raw output.
	Run(input []float32) ([]float32, error)
	// Close releases the session's native resources.
	Close() error
}

// SessionFactory creates a Session from a descriptor. The loader walks the
// registry with it; tests inject counting mocks.
type SessionFactory func(desc Descriptor) (Session, error)

const (
	// outputChannels is 4 box values + 1 objectness + 3 values per keypoint
	// for the 17-landmark pose head.
	outputChannels = 56
	inputName      = "images"
	outputName     = "output0"
)

// candidateCount returns the anchor count N the pose head emits for a
// square input: one cell per position at strides 8, 16 and 32.
func candidateCount(inputSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := inputSize / stride
		n += side * side
	}
	return n
}

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// initRuntime initializes the ONNX runtime environment exactly once per
// process. The shared library location can be overridden with the
// ONNXRUNTIME_SHARED_LIBRARY_PATH environment variable.
func initRuntime() error {
	ortInitOnce.Do(func() {
		if p := os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH"); p != "" {
			ort.SetSharedLibraryPath(p)
		} else {
			ort.SetSharedLibraryPath(defaultSharedLibPath())
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

func defaultSharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.dylib"
		}
		return "third_party/onnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
}

// ortSession wraps an onnxruntime session with preallocated input and
// output tensors sized for the descriptor's input resolution.
type ortSession struct {
	desc    Descriptor
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

// NewORTSession is the production SessionFactory: it instantiates an ONNX
// runtime session from the descriptor's model file.
func NewORTSession(desc Descriptor) (Session, error) {
	if err := initRuntime(); err != nil {
		return nil, fmt.Errorf("onnxruntime environment init: %w", err)
	}
	if _, err := os.Stat(desc.Path); err != nil {
		return nil, fmt.Errorf("model file %s: %w", desc.Path, err)
	}

	inputShape := ort.NewShape(1, 3, int64(desc.InputSize), int64(desc.InputSize))
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, 3*desc.InputSize*desc.InputSize))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, outputChannels, int64(candidateCount(desc.InputSize)))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		desc.Path,
		[]string{inputName},
		[]string{outputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session for %s: %w", desc.ID, err)
	}

	return &ortSession{
		desc:    desc,
		session: session,
		input:   inputTensor,
		output:  outputTensor,
	}, nil
}

func (s *ortSession) Descriptor() Descriptor {
	return s.desc
}

func (s *ortSession) Run(input []float32) ([]float32, error) {
	data := s.input.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input length %d, session expects %d", len(input), len(data))
	}
	copy(data, input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("session run: %w", err)
	}

	raw := s.output.GetData()
	out := make([]float32, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *ortSession) Close() error {
	var firstErr error
	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			firstErr = err
		}
		s.session = nil
	}
	if s.input != nil {
		if err := s.input.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.input = nil
	}
	if s.output != nil {
		if err := s.output.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.output = nil
	}
	return firstErr
}
