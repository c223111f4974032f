package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CSVHeader is the column layout written by ToCSV.
var CSVHeader = []string{"index", "center_x", "center_y", "area", "mean_intensity"}

// ToJSON serializes a single Result to pretty JSON.
func ToJSON(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CSVRow formats one well the way ToCSV does.
func CSVRow(index, cx, cy int, area, mean float64) []string {
	return []string{
		strconv.Itoa(index),
		strconv.Itoa(cx),
		strconv.Itoa(cy),
		strconv.FormatFloat(area, 'f', 1, 64),
		strconv.FormatFloat(mean, 'f', 3, 64),
	}
}

// ToCSV exports the well table with a header row.
func ToCSV(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(CSVHeader); err != nil {
		return "", err
	}
	for _, well := range res.Wells {
		if err := w.Write(CSVRow(well.Index, well.Center.X, well.Center.Y, well.Area, well.MeanIntensity)); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// ToText renders a short human readable report.
func ToText(res *Result) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	var sb strings.Builder
	r := res.ROI
	fmt.Fprintf(&sb, "ROI %dx%d at (%d,%d), threshold %d, %d wells", r.W, r.H, r.X, r.Y, res.Threshold, len(res.Wells))
	if res.Oversized > 0 || res.Degenerate > 0 {
		fmt.Fprintf(&sb, " (%d oversized, %d degenerate skipped)", res.Oversized, res.Degenerate)
	}
	sb.WriteByte('\n')
	for _, w := range res.Wells {
		fmt.Fprintf(&sb, "well %d: center=(%d,%d) area=%.1f mean=%.3f\n",
			w.Index, w.Center.X, w.Center.Y, w.Area, w.MeanIntensity)
	}
	return sb.String(), nil
}

// ValidateResult performs simple consistency checks.
func ValidateResult(res *Result) error {
	if res == nil {
		return errors.New("nil result")
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", res.Width, res.Height)
	}
	roi := res.ROI.Rect()
	for i, w := range res.Wells {
		if w.Index != i+1 {
			return fmt.Errorf("well %d has index %d", i, w.Index)
		}
		if !w.Center.In(roi) {
			return fmt.Errorf("well %d centre %v outside roi %v", w.Index, w.Center, roi)
		}
		if w.MeanIntensity < 0 || w.MeanIntensity > 255 {
			return fmt.Errorf("well %d mean intensity %g out of range", w.Index, w.MeanIntensity)
		}
	}
	return nil
}
