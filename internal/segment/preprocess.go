package segment

import (
	"image"
)

// ThresholdSpec chooses between Otsu and a fixed level.
type ThresholdSpec struct {
	Mode  ThresholdMode `json:"mode" yaml:"mode"`
	Value int           `json:"value,omitempty" yaml:"value,omitempty"`
}

// PreprocessOptions configures grayscale conversion, binarisation and opening.
type PreprocessOptions struct {
	Threshold      ThresholdSpec
	Polarity       Polarity
	KernelShape    KernelShape
	KernelSize     int
	OpenIterations int
}

// DefaultPreprocessOptions returns Otsu, dark wells, a 5x5 rectangle and two
// opening iterations.
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		Threshold:      ThresholdSpec{Mode: ThresholdOtsu},
		Polarity:       ObjectsDark,
		KernelShape:    KernelRect,
		KernelSize:     5,
		OpenIterations: 2,
	}
}

// Validate rejects options outside sane ranges.
func (o PreprocessOptions) Validate() error {
	switch o.Threshold.Mode {
	case ThresholdOtsu:
	case ThresholdManual:
		if o.Threshold.Value < 0 || o.Threshold.Value > 255 {
			return invalidConfig("preprocess", "manual threshold must be in [0,255], got %d", o.Threshold.Value)
		}
	default:
		return invalidConfig("preprocess", "unknown threshold mode %d", int(o.Threshold.Mode))
	}
	if o.Polarity != ObjectsDark && o.Polarity != ObjectsBright {
		return invalidConfig("preprocess", "unknown polarity %d", int(o.Polarity))
	}
	if o.KernelShape != KernelRect && o.KernelShape != KernelEllipse {
		return invalidConfig("preprocess", "unknown kernel shape %d", int(o.KernelShape))
	}
	if o.KernelSize < 1 || o.KernelSize > MaxKernelSize {
		return invalidConfig("preprocess", "kernel size must be in [1,%d], got %d", MaxKernelSize, o.KernelSize)
	}
	if o.OpenIterations < 1 {
		return invalidConfig("preprocess", "opening iterations must be >= 1, got %d", o.OpenIterations)
	}
	return nil
}

// MaxKernelSize bounds structuring elements.
const MaxKernelSize = 31

// Preprocessed is the output of the preprocessing stage.
type Preprocessed struct {
	Gray      *Gray
	Mask      *Mask
	Kernel    Kernel
	Threshold uint8
}

// Preprocess converts img to grayscale, binarises it and applies morphological
// opening. A zero-area image yields empty grids and no error.
func Preprocess(img image.Image, opts PreprocessOptions) (*Preprocessed, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	kernel, err := NewKernel(opts.KernelShape, opts.KernelSize)
	if err != nil {
		return nil, err
	}

	gray := ToGray(img)
	if gray.Empty() {
		return &Preprocessed{Gray: gray, Mask: &Mask{}, Kernel: kernel}, nil
	}

	var level uint8
	if opts.Threshold.Mode == ThresholdManual {
		level = uint8(opts.Threshold.Value)
	} else {
		level = OtsuThreshold(Histogram(gray))
	}

	mask := Binarize(gray, level, opts.Polarity)
	opened := Open(mask, kernel, opts.OpenIterations)

	return &Preprocessed{Gray: gray, Mask: opened, Kernel: kernel, Threshold: level}, nil
}

// PreprocessManual is the adjustable single-ROI flow: fixed threshold, inverse
// binary and a single opening with an ellipse of kernelSize.
func PreprocessManual(img image.Image, threshold, kernelSize int) (*Preprocessed, error) {
	return Preprocess(img, PreprocessOptions{
		Threshold:      ThresholdSpec{Mode: ThresholdManual, Value: threshold},
		Polarity:       ObjectsDark,
		KernelShape:    KernelEllipse,
		KernelSize:     kernelSize,
		OpenIterations: 1,
	})
}
