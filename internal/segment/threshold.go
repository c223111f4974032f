package segment

import "fmt"

// ThresholdMode selects how the binarisation level is chosen.
type ThresholdMode int

const (
	ThresholdOtsu ThresholdMode = iota
	ThresholdManual
)

func (m ThresholdMode) String() string {
	switch m {
	case ThresholdOtsu:
		return "otsu"
	case ThresholdManual:
		return "manual"
	default:
		return fmt.Sprintf("ThresholdMode(%d)", int(m))
	}
}

// ParseThresholdMode maps "otsu" or "manual" to a mode.
func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch s {
	case "", "otsu":
		return ThresholdOtsu, nil
	case "manual":
		return ThresholdManual, nil
	default:
		return 0, invalidConfig("threshold", "unknown threshold mode %q", s)
	}
}

// Polarity tells the thresholder which side of the level holds the wells.
type Polarity int

const (
	// ObjectsDark marks pixels at or below the level as foreground (inverse binary).
	ObjectsDark Polarity = iota
	// ObjectsBright marks pixels above the level as foreground.
	ObjectsBright
)

func (p Polarity) String() string {
	switch p {
	case ObjectsDark:
		return "dark"
	case ObjectsBright:
		return "bright"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// ParsePolarity maps "dark" or "bright" to a polarity.
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "", "dark":
		return ObjectsDark, nil
	case "bright":
		return ObjectsBright, nil
	default:
		return 0, invalidConfig("threshold", "unknown polarity %q", s)
	}
}

// Histogram counts the 256 intensity levels of g.
func Histogram(g *Gray) [256]int {
	var hist [256]int
	for _, v := range g.Pix {
		hist[v]++
	}
	return hist
}

// OtsuThreshold returns the level maximising between-class variance over
// the histogram. The first maximum wins; a single-level image yields 0.
func OtsuThreshold(hist [256]int) uint8 {
	total := 0
	var sum float64
	for i, c := range hist {
		total += c
		sum += float64(i) * float64(c)
	}
	if total == 0 {
		return 0
	}

	var sumB, maxVariance float64
	best := 0
	wB := 0
	for t := range 256 {
		wB += hist[t]
		sumB += float64(t) * float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		pB := float64(wB) / float64(total)
		pF := float64(wF) / float64(total)
		variance := pB * pF * (mB - mF) * (mB - mF)
		if variance > maxVariance {
			maxVariance = variance
			best = t
		}
	}
	return uint8(best)
}

// Binarize applies level t to g. With ObjectsBright, v > t becomes MaskOn;
// with ObjectsDark the result is inverted.
func Binarize(g *Gray, t uint8, polarity Polarity) *Mask {
	out := NewGray(g.W, g.H)
	for i, v := range g.Pix {
		above := v > t
		if above == (polarity == ObjectsBright) {
			out.Pix[i] = MaskOn
		}
	}
	return out
}
