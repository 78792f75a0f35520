package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/matzehuels/pikchr/pkg/buildinfo"
	"github.com/matzehuels/pikchr/pkg/convert"
	"github.com/matzehuels/pikchr/pkg/errors"
	"github.com/matzehuels/pikchr/pkg/pikchr"
	"github.com/matzehuels/pikchr/pkg/pipeline"
)

// Response headers set on successful renders.
const (
	HeaderWidth  = "X-Pikchr-Width"
	HeaderHeight = "X-Pikchr-Height"
	HeaderCache  = "X-Cache"
)

var contentTypes = map[string]string{
	errors.FormatSVG: "image/svg+xml",
	errors.FormatPNG: "image/png",
	errors.FormatPDF: "application/pdf",
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// POST /render
// =============================================================================

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, format, err := s.renderOptions(r)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			s.writeErr(w, errors.New(errors.ErrCodeBodyTooLarge, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeErr(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body"))
		return
	}

	res, err := s.runner.Execute(r.Context(), pikchr.DecodeSource(body), opts)
	if err != nil {
		if opts.HTMLErrors && errors.Classify(err) == errors.ErrCodeRenderFailed {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, errors.UserMessage(err))
			return
		}
		s.writeErr(w, err)
		return
	}

	cacheStatus := "miss"
	if res.CacheHit {
		cacheStatus = "hit"
	}
	data := res.Artifacts[format]
	h := w.Header()
	h.Set("Content-Type", contentTypes[format])
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set(HeaderWidth, strconv.Itoa(res.Width))
	h.Set(HeaderHeight, strconv.Itoa(res.Height))
	h.Set(HeaderCache, cacheStatus)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// renderOptions merges query parameters over the server defaults.
func (s *Server) renderOptions(r *http.Request) (pipeline.Options, string, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Class:      s.defaults.Class,
		DarkMode:   s.defaults.DarkMode,
		HTMLErrors: s.defaults.HTMLErrors,
		Scale:      s.defaults.Scale,
		Background: s.defaults.Background,
		Logger:     s.logger.With("request_id", RequestID(r.Context())),
	}

	format := q.Get("format")
	if format == "" {
		format = errors.FormatSVG
	}
	if err := errors.ValidateFormat(format); err != nil {
		return opts, "", err
	}
	opts.Formats = []string{format}

	if q.Has("class") {
		opts.Class = q.Get("class")
	}
	if v := q.Get("dark"); v != "" {
		dark, err := strconv.ParseBool(v)
		if err != nil {
			return opts, "", errors.New(errors.ErrCodeInvalidInput, "dark must be a boolean, got %q", v)
		}
		opts.DarkMode = dark
	}
	switch v := q.Get("errors"); v {
	case "":
	case "plain":
		opts.HTMLErrors = false
	case "html":
		opts.HTMLErrors = true
	default:
		return opts, "", errors.New(errors.ErrCodeInvalidInput, "errors must be plain or html, got %q", v)
	}
	if v := q.Get("scale"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, "", errors.New(errors.ErrCodeInvalidInput, "scale must be a number, got %q", v)
		}
		opts.Scale = scale
	}
	if q.Has("background") {
		opts.Background = q.Get("background")
	}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, "", err
	}
	return opts, format, nil
}

// =============================================================================
// GET /healthz
// =============================================================================

type healthBody struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Renderer bool   `json:"renderer"`
	RSVG     bool   `json:"rsvg"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status:   "ok",
		Version:  buildinfo.Version,
		Renderer: pikchr.Available(),
		RSVG:     convert.HasRSVG(),
	})
}

// =============================================================================
// Responses
// =============================================================================

// writeErr maps err onto a status code and JSON error body.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	code := errors.Classify(err)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("render failed", "code", code, "err", err)
	}
	writeError(w, status, string(code), errors.UserMessage(err))
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
