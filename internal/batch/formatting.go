package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cyber-run/floro/internal/analysis"
	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
)

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(r)
	case FormatCSV:
		return formatCSV(r.Entries)
	case "", FormatText:
		return formatText(r.Entries)
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

// SaveResults writes the formatted results to outputFile, or to out when
// outputFile is empty.
func (r *Result) SaveResults(out io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(out, "Results written to %s\n", outputFile)
		}
		return nil
	}
	_, err = fmt.Fprint(out, output)
	return err
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(out io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats
	_, _ = fmt.Fprintf(out, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(out, "  Total images: %d\n", len(r.ImagePaths))
	_, _ = fmt.Fprintf(out, "  Regions: %d\n", stats.TotalJobs)
	_, _ = fmt.Fprintf(out, "  Processed: %d\n", stats.ProcessedJobs)
	_, _ = fmt.Fprintf(out, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(out, "  Wells: %d\n", stats.Wells)
	_, _ = fmt.Fprintf(out, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(out, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(out, "  Avg per region: %v\n", stats.AveragePerJob.Round(time.Microsecond))
	_, _ = fmt.Fprintf(out, "  Throughput: %.1f regions/sec\n", stats.ThroughputPerSec)
}

func formatJSON(r *Result) (string, error) {
	doc := struct {
		Entries []Entry                `json:"entries"`
		Summary analysis.Summary       `json:"summary"`
		Stats   pipeline.ParallelStats `json:"stats"`
	}{Entries: r.Entries, Summary: overallSummary(r.Entries), Stats: r.Stats}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	bts, err := json.MarshalIndent(doc, "", "  ")
	return string(bts), err
}

var csvHeader = append([]string{"file", "roi_id", "drug_name"}, append(pipeline.CSVHeader, "error")...)

func formatCSV(entries []Entry) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}

	for _, e := range entries {
		prefix := []string{e.File, "", ""}
		if e.Region != nil {
			prefix[1] = strconv.Itoa(e.Region.ID)
			prefix[2] = e.Region.DrugName
		}
		if e.Result == nil || len(e.Result.Wells) == 0 {
			// Keep a row for regions with no wells so every region is accounted for.
			row := append(prefix, make([]string, len(pipeline.CSVHeader))...)
			if err := writer.Write(append(row, e.Error)); err != nil {
				return "", err
			}
			continue
		}
		for _, w := range e.Result.Wells {
			row := append(append([]string(nil), prefix...),
				pipeline.CSVRow(w.Index, w.Center.X, w.Center.Y, w.Area, w.MeanIntensity)...)
			if err := writer.Write(append(row, "")); err != nil {
				return "", err
			}
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(entries []Entry) (string, error) {
	var output strings.Builder
	for i, e := range entries {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString("# " + e.File)
		if e.Region != nil {
			fmt.Fprintf(&output, " [roi %d", e.Region.ID)
			if e.Region.DrugName != "" {
				output.WriteString(" " + e.Region.DrugName)
			}
			output.WriteString("]")
		}
		output.WriteString("\n")
		if e.Err != nil || e.Result == nil {
			fmt.Fprintf(&output, "error: %s\n", e.Error)
			continue
		}
		text, err := pipeline.ToText(e.Result)
		if err != nil {
			return "", err
		}
		output.WriteString(text)
		if s := e.Summary; s.Wells > 0 {
			fmt.Fprintf(&output, "summary: mean=%.3f sd=%.3f median=%.3f min=%.3f max=%.3f\n",
				s.Mean, s.StdDev, s.Median, s.Min, s.Max)
		}
	}
	return output.String(), nil
}

// overallSummary pools the wells of every successful entry.
func overallSummary(entries []Entry) analysis.Summary {
	var wells []segment.Well
	for _, e := range entries {
		if e.Result != nil {
			wells = append(wells, e.Result.Wells...)
		}
	}
	return analysis.Summarize(wells)
}
