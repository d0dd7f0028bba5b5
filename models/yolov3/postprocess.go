package yolov3

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/postprocess"
)

// Postprocessor turns the output tensors of one YOLOv3 forward pass into detections.
//
// It holds only its configuration, so one instance may be shared by concurrent
// callers as long as each call passes its own tensors.
type Postprocessor struct {
	config Config
	logger *zap.Logger
}

// Option configures a Postprocessor.
type Option func(*Postprocessor)

// WithLogger sets the logger used for debug output. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Postprocessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPostprocessor validates config and creates a postprocessor.
//
// Arguments:
//   - config: The model configuration. It is copied.
//   - opts: Optional settings.
//
// Returns:
//   - *Postprocessor: The postprocessor.
//   - error: ErrInvalidConfiguration if config is rejected.
func NewPostprocessor(config Config, opts ...Option) (*Postprocessor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Anchors = append([]Anchor(nil), config.Anchors...)
	config.Masks = append([]Mask(nil), config.Masks...)

	p := &Postprocessor{
		config: config,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns a copy of the configuration.
func (p *Postprocessor) Config() Config {
	c := p.config
	c.Anchors = append([]Anchor(nil), c.Anchors...)
	c.Masks = append([]Mask(nil), c.Masks...)
	return c
}

// Process decodes, filters, rescales and suppresses one set of output tensors.
//
// All tensors and the image size are validated before any decoding starts, so a
// failing call never yields partial results. Finding nothing is not an error: the
// result is then postprocess.NoDetections.
//
// Arguments:
//   - outputs: One tensor per configured mask, in mask order.
//   - size: Width and height of the original, un-padded image.
//
// Returns:
//   - *postprocess.Detections: Boxes in absolute pixels with classes and scores.
//   - error: ErrShapeMismatch or ErrInvalidImageDimensions.
func (p *Postprocessor) Process(outputs []tensor.Tensor, size images.Size) (*postprocess.Detections, error) {
	if len(outputs) != len(p.config.Masks) {
		return nil, errors.Wrapf(ErrShapeMismatch, "got %d output tensors for %d masks", len(outputs), len(p.config.Masks))
	}
	for i, output := range outputs {
		if _, err := checkOutput(output, p.config.Categories); err != nil {
			return nil, errors.Wrapf(err, "output %d", i)
		}
	}
	if !size.Valid() {
		return nil, errors.Wrapf(ErrInvalidImageDimensions, "%dx%d", size.Width, size.Height)
	}

	candidates, err := p.aggregate(outputs, size)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		p.logger.Debug("no candidates above objectness threshold",
			zap.Float32("threshold", p.config.ObjectnessThreshold))
		return postprocess.NoDetections(), nil
	}

	kept := postprocess.PerClassNMS(candidates, &postprocess.NMSConfig{
		IoUThreshold: p.config.NMSThreshold,
		NumWorkers:   p.config.Workers,
	})

	p.logger.Debug("postprocessed outputs",
		zap.Int("candidates", len(candidates)),
		zap.Int("kept", len(kept)))

	return postprocess.Assemble(kept), nil
}

// aggregate runs Decode and Filter on every scale, concatenates the candidates in
// scale order and rescales their boxes to the original image size.
func (p *Postprocessor) aggregate(outputs []tensor.Tensor, size images.Size) ([]postprocess.Candidate, error) {
	perScale := make([][]postprocess.Candidate, len(outputs))
	errs := make([]error, len(outputs))

	run := func(scale int) {
		features, err := Decode(outputs[scale], p.config.ScaleAnchors(scale), p.config.InputResolution, p.config.Categories)
		if err != nil {
			errs[scale] = errors.Wrapf(err, "can't decode output %d", scale)
			return
		}
		perScale[scale] = Filter(features, p.config.ObjectnessThreshold)
	}

	if p.config.Workers > 1 {
		var wg sync.WaitGroup
		for scale := range outputs {
			wg.Add(1)
			go func(scale int) {
				defer wg.Done()
				run(scale)
			}(scale)
		}
		wg.Wait()
	} else {
		for scale := range outputs {
			run(scale)
		}
	}

	total := 0
	for scale, candidates := range perScale {
		if errs[scale] != nil {
			return nil, errs[scale]
		}
		p.logger.Debug("filtered scale",
			zap.Int("scale", scale),
			zap.Ints("grid", outputs[scale].Shape()[2:]),
			zap.Int("candidates", len(candidates)))
		total += len(candidates)
	}

	sx := float32(size.Width)
	sy := float32(size.Height)
	all := make([]postprocess.Candidate, 0, total)
	for _, candidates := range perScale {
		for _, c := range candidates {
			c.Box = c.Box.Scale(sx, sy)
			all = append(all, c)
		}
	}

	return all, nil
}
