package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/cyber-run/floro/internal/analysis"
	"github.com/cyber-run/floro/internal/pipeline"
	"github.com/cyber-run/floro/internal/segment"
	"github.com/cyber-run/floro/internal/utils"
	"github.com/cyber-run/floro/internal/version"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatText = "text"
	formatPNG  = "png"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mem := pipeline.GetMemStats()
	response := HealthResponse{
		Status:   "healthy",
		Version:  version.Version,
		Time:     time.Now().UTC().Format(time.RFC3339),
		Memory:   &mem,
		Pipeline: s.profiler.Snapshot(),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// segmentHandler runs the pipeline on an uploaded image.
func (s *Server) segmentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, opts, ok := s.parseSegmentRequest(w, r)
	if !ok {
		segmentRequestsTotal.WithLabelValues("http", "error").Inc()
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	switch format {
	case "":
		format = formatJSON
	case formatJSON, formatCSV, formatText:
	case formatPNG:
		if !s.overlay {
			s.writeErrorResponse(w, "overlay output disabled", http.StatusForbidden)
			return
		}
	default:
		s.writeErrorResponse(w, "unsupported format "+format, http.StatusBadRequest)
		return
	}

	res, err := s.segment(r.Context(), "http", img, opts, format == formatPNG)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), statusForError(err))
		return
	}
	s.writeSegmentResponse(w, format, res)
}

// parseSegmentRequest reads the multipart upload. On failure the error
// response has already been written.
func (s *Server) parseSegmentRequest(w http.ResponseWriter, r *http.Request) (image.Image, RequestOptions, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, RequestOptions{}, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return nil, RequestOptions{}, false
	}
	defer func() { _ = file.Close() }()
	uploadSizeBytes.Observe(float64(header.Size))

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return nil, RequestOptions{}, false
	}

	opts, err := formOptions(r.FormValue)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, RequestOptions{}, false
	}
	return img, opts, true
}

// segment applies opts to the server defaults and runs one image, bounded
// by the request timeout.
func (s *Server) segment(ctx context.Context, source string, img image.Image, opts RequestOptions,
	annotate bool) (*pipeline.Result, error) {
	cfg, roi, err := opts.apply(s.config)
	if err != nil {
		segmentRequestsTotal.WithLabelValues(source, "error").Inc()
		return nil, err
	}
	pl, err := pipeline.NewBuilder().WithConfig(cfg).WithAnnotation(annotate).WithLogger(s.logger).Build()
	if err != nil {
		segmentRequestsTotal.WithLabelValues(source, "error").Inc()
		return nil, err
	}

	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	start := time.Now()
	res, err := pl.RunContext(ctx, img, roi)
	wells := 0
	if res != nil {
		wells = len(res.Wells)
	}
	observeSegment(source, time.Since(start).Seconds(), wells, err)
	s.profiler.Record(res)
	if err != nil {
		s.logger.Debug().Str("source", source).Err(err).Msg("segmentation failed")
	}
	return res, err
}

func (s *Server) writeSegmentResponse(w http.ResponseWriter, format string, res *pipeline.Result) {
	switch format {
	case formatCSV:
		out, err := pipeline.ToCSV(res)
		if err != nil {
			s.writeErrorResponse(w, "formatting failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(out))
	case formatText:
		out, err := pipeline.ToText(res)
		if err != nil {
			s.writeErrorResponse(w, "formatting failed: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(out))
	case formatPNG:
		if res.Annotated == nil {
			s.writeErrorResponse(w, "overlay failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, res.Annotated); err != nil {
			s.logger.Error().Err(err).Msg("encoding overlay")
		}
	default:
		summary := analysis.Summarize(res.Wells)
		s.writeJSON(w, http.StatusOK, SegmentResponse{Success: true, Result: res, Summary: &summary})
	}
}

// statusForError maps the segmentation error taxonomy onto HTTP codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, segment.ErrInvalidInput), errors.Is(err, segment.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("encoding response")
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, SegmentResponse{Success: false, Error: message})
}
