package inference

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/models/yolov3"
)

// SessionConfig describes an onnxruntime session for a YOLOv3 export.
type SessionConfig struct {
	// ModelPath is the ONNX file.
	ModelPath string
	// LibraryPath is the onnxruntime shared library. Empty uses SharedLibPath.
	LibraryPath string
	// Inputs and Outputs are the tensor names. Outputs are in mask order.
	Inputs  []string
	Outputs []string
	// Precision of the output tensors.
	Precision Precision
	// IntraOpThreads and InterOpThreads bound the runtime's thread pools; 0 lets it decide.
	IntraOpThreads int
	InterOpThreads int
}

// Session owns an onnxruntime session with preallocated input and output tensors.
type Session struct {
	mu        sync.Mutex
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	outputs   []ort.ArbitraryTensor
	shapes    []tensor.Shape
	precision Precision
}

// SharedLibPath returns the default path of the onnxruntime shared library.
func SharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}

var initOnce sync.Once
var initErr error

func initEnvironment(libPath string) error {
	initOnce.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if _, err := os.Stat(libPath); err != nil {
			initErr = errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = errors.Wrap(err, "error initializing ORT environment")
		}
	})
	return initErr
}

// NewSession creates a session whose outputs match the shapes expected by a
// postprocessor built from postprocess.
//
// Order of operations:
//  1. Environment setup, once per process.
//  2. Tensor allocation: one (1, 3, H, W) input and one output per scale.
//  3. Session options and session creation.
//
// Arguments:
//   - config: The session settings.
//   - postprocess: The postprocessing configuration the outputs are shaped from.
//
// Returns:
//   - *Session: The session. The caller must Close it.
//   - error: An error if the library, the model or a tensor can't be set up.
func NewSession(config SessionConfig, postprocess yolov3.Config) (*Session, error) {
	if err := postprocess.Validate(); err != nil {
		return nil, err
	}
	shapes := OutputShapes(postprocess)
	if len(config.Outputs) != len(shapes) {
		return nil, errors.Errorf("got %d output names for %d scales", len(config.Outputs), len(shapes))
	}
	if len(config.Inputs) != 1 {
		return nil, errors.Errorf("got %d input names, want 1", len(config.Inputs))
	}
	size, err := config.Precision.ElementSize()
	if err != nil {
		return nil, err
	}

	libPath := config.LibraryPath
	if libPath == "" {
		libPath = SharedLibPath()
	}
	if err := initEnvironment(libPath); err != nil {
		return nil, err
	}

	s := &Session{shapes: shapes, precision: config.Precision}

	s.input, err = ort.NewEmptyTensor[float32](ort.NewShape(int64Shape(InputShape(postprocess))...))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}

	for _, shape := range shapes {
		var output ort.ArbitraryTensor
		if size == 2 {
			output, err = ort.NewCustomDataTensor(ort.NewShape(int64Shape(shape)...),
				make([]byte, shape.TotalSize()*size), ort.TensorElementDataTypeFloat16)
		} else {
			output, err = ort.NewEmptyTensor[float32](ort.NewShape(int64Shape(shape)...))
		}
		if err != nil {
			s.Close()
			return nil, errors.Wrapf(err, "error creating output tensor %v", shape)
		}
		s.outputs = append(s.outputs, output)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()

	if err := options.SetIntraOpNumThreads(config.IntraOpThreads); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "error setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(config.InterOpThreads); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "error setting inter-op threads")
	}

	s.session, err = ort.NewAdvancedSession(
		config.ModelPath,
		config.Inputs,
		config.Outputs,
		[]ort.ArbitraryTensor{s.input},
		s.outputs,
		options,
	)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return s, nil
}

// Run feeds blob, a preprocessed (1, 3, H, W) image, through the network.
//
// Returns:
//   - []tensor.Tensor: Float32 copies of the outputs, in mask order.
//   - error: An error if blob has the wrong size or the run fails.
func (s *Session) Run(blob []float32) ([]tensor.Tensor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("session is closed")
	}
	data := s.input.GetData()
	if len(blob) != len(data) {
		return nil, errors.Errorf("got %d input values, want %d", len(blob), len(data))
	}
	copy(data, blob)

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}

	outputs := make([]tensor.Tensor, len(s.outputs))
	for i, output := range s.outputs {
		var dense *tensor.Dense
		var err error
		switch t := output.(type) {
		case *ort.Tensor[float32]:
			dense, err = DenseFromFloat32(s.shapes[i], t.GetData())
		case *ort.CustomDataTensor:
			dense, err = DenseFromBytes(s.precision, s.shapes[i], t.GetData())
		default:
			err = errors.Errorf("unexpected output tensor %T", output)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
		outputs[i] = dense
	}
	return outputs, nil
}

// Close releases the session and its tensors.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	for _, output := range s.outputs {
		output.Destroy()
	}
	s.outputs = nil

	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
	}
	return nil
}
