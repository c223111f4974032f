package server

import (
	"image"
	"strconv"
	"strings"

	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/utils"
)

// RequestOptions are the per-request overrides accepted by the HTTP form
// and the WebSocket config object. Empty fields keep the server defaults.
type RequestOptions struct {
	ROI         string   `json:"roi,omitempty"`
	Threshold   string   `json:"threshold,omitempty"` // "otsu" or 0..255
	Polarity    string   `json:"polarity,omitempty"`
	KernelShape string   `json:"kernel_shape,omitempty"`
	KernelSize  *int     `json:"kernel_size,omitempty"`
	FgFraction  *float64 `json:"fg_fraction,omitempty"`
	MaxArea     *float64 `json:"max_area,omitempty"`
}

// formOptions reads RequestOptions from form values.
func formOptions(get func(string) string) (RequestOptions, error) {
	opts := RequestOptions{
		ROI:         get("roi"),
		Threshold:   get("threshold"),
		Polarity:    get("polarity"),
		KernelShape: get("kernel_shape"),
	}
	if v := get("kernel_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, segment.ConfigError("request", "kernel_size %q: %v", v, err)
		}
		opts.KernelSize = &n
	}
	for name, dst := range map[string]**float64{"fg_fraction": &opts.FgFraction, "max_area": &opts.MaxArea} {
		v := get(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, segment.ConfigError("request", "%s %q: %v", name, v, err)
		}
		*dst = &f
	}
	return opts, nil
}

// apply overlays the options on base and resolves the ROI.
func (o RequestOptions) apply(base pipeline.Config) (pipeline.Config, *image.Rectangle, error) {
	cfg := base
	switch t := strings.ToLower(strings.TrimSpace(o.Threshold)); t {
	case "":
	case "otsu":
		cfg.Threshold = segment.ThresholdSpec{Mode: segment.ThresholdOtsu}
	default:
		level, err := strconv.Atoi(t)
		if err != nil {
			return cfg, nil, segment.ConfigError("request", "threshold %q: want otsu or 0..255", o.Threshold)
		}
		cfg.Threshold = segment.ThresholdSpec{Mode: segment.ThresholdManual, Value: level}
	}
	if o.Polarity != "" {
		p, err := segment.ParsePolarity(o.Polarity)
		if err != nil {
			return cfg, nil, err
		}
		cfg.Polarity = p
	}
	if o.KernelShape != "" {
		k, err := segment.ParseKernelShape(o.KernelShape)
		if err != nil {
			return cfg, nil, err
		}
		cfg.KernelShape = k
	}
	if o.KernelSize != nil {
		cfg.KernelSize = *o.KernelSize
	}
	if o.FgFraction != nil {
		cfg.ForegroundFraction = *o.FgFraction
	}
	if o.MaxArea != nil {
		if *o.MaxArea == 0 {
			cfg.MaxContourArea = nil
		} else {
			area := *o.MaxArea
			cfg.MaxContourArea = &area
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	if o.ROI == "" {
		return cfg, nil, nil
	}
	rect, err := utils.ParseRect(o.ROI)
	if err != nil {
		return cfg, nil, segment.InputError("request", "roi: %v", err)
	}
	return cfg, &rect, nil
}
