package segment

// MarkerOptions configures seed construction.
type MarkerOptions struct {
	// ForegroundFraction of the maximum distance above which a pixel is sure foreground.
	ForegroundFraction float64
	// BackgroundIterations of dilation used to grow the sure background.
	BackgroundIterations int
}

// DefaultMarkerOptions returns fraction 0.5 and one dilation.
func DefaultMarkerOptions() MarkerOptions {
	return MarkerOptions{ForegroundFraction: 0.5, BackgroundIterations: 1}
}

// Validate rejects fractions outside (0,1) and non-positive iteration counts.
func (o MarkerOptions) Validate() error {
	if !(o.ForegroundFraction > 0 && o.ForegroundFraction < 1) {
		return invalidConfig("markers", "foreground fraction must be in (0,1), got %g", o.ForegroundFraction)
	}
	if o.BackgroundIterations < 1 {
		return invalidConfig("markers", "background iterations must be >= 1, got %d", o.BackgroundIterations)
	}
	return nil
}

// Markers is the seed field handed to Watershed plus the masks it came from.
type Markers struct {
	Field          *LabelField
	SureForeground *Mask
	SureBackground *Mask
	Distance       *DistanceMap
	// Objects is the number of object seeds, labelled LabelFirstObject onwards.
	Objects int
}

// BuildMarkers derives watershed seeds from a cleaned binary mask:
// background becomes LabelBackground, each sure-foreground blob gets its own
// label from LabelFirstObject, and the band between them is LabelUnknown.
func BuildMarkers(mask *Mask, kernel Kernel, opts MarkerOptions) (*Markers, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if mask.Empty() {
		return &Markers{
			Field:          &LabelField{},
			SureForeground: &Mask{},
			SureBackground: &Mask{},
			Distance:       &DistanceMap{},
		}, nil
	}

	sureBg := Dilate(mask, kernel, opts.BackgroundIterations)

	dist := DistanceTransform(mask)
	level := float32(opts.ForegroundFraction) * dist.Max()
	sureFg := NewGray(mask.W, mask.H)
	for i, v := range dist.Pix {
		if v > level {
			sureFg.Pix[i] = MaskOn
		}
	}

	field, comps := ConnectedComponents(sureFg)
	for i, v := range field.Pix {
		if sureBg.Pix[i] != 0 && sureFg.Pix[i] == 0 {
			field.Pix[i] = LabelUnknown
			continue
		}
		field.Pix[i] = v + 1
	}

	return &Markers{
		Field:          field,
		SureForeground: sureFg,
		SureBackground: sureBg,
		Distance:       dist,
		Objects:        len(comps),
	}, nil
}
