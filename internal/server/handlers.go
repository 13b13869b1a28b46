package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/preview"
	"github.com/conneroisu/pagebuilder/internal/transfer"
	"github.com/conneroisu/pagebuilder/internal/types"
	"github.com/conneroisu/pagebuilder/internal/version"
)

// maxBodySize bounds JSON request bodies other than imports.
const maxBodySize = 1 << 20

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type addSectionRequest struct {
	TemplateID string `json:"templateId"`
}

type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type templatesResponse struct {
	Templates  []types.SectionTemplate `json:"templates"`
	Categories []string                `json:"categories"`
}

func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(ctx, err, "Failed to encode response")
	}
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Message: err.Error()}
	var be *errors.BuilderError
	if stderrors.As(err, &be) {
		resp.Code = be.Code
		resp.Message = be.Message
		resp.Details = errors.Details(be)
	}
	s.writeJSON(ctx, w, status, resp)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return errors.NewParseError(errors.ErrCodeValidationFailed, "invalid request body", err)
	}
	return nil
}

// handleHealth returns the server health status for health checks
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMutex.RLock()
	clients := len(s.clients)
	s.clientsMutex.RUnlock()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.Short(),
		"checks": map[string]interface{}{
			"store":     map[string]interface{}{"status": "healthy", "sections": len(s.builder.GetOrderedSections())},
			"catalog":   map[string]interface{}{"status": "healthy", "templates": len(s.catalog.All())},
			"websocket": map[string]interface{}{"status": "healthy", "clients": clients},
		},
	}

	s.writeJSON(r.Context(), w, http.StatusOK, health)
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.catalog.All()
	if category := r.URL.Query().Get("category"); category != "" {
		templates = s.catalog.ByCategory()[category]
		if templates == nil {
			templates = []types.SectionTemplate{}
		}
	}

	s.writeJSON(r.Context(), w, http.StatusOK, templatesResponse{
		Templates:  templates,
		Categories: s.catalog.Categories(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(r.Context(), w, http.StatusOK, s.builder.State())
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addSectionRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	tmpl, err := s.catalog.Get(req.TemplateID)
	if err != nil {
		s.writeError(ctx, w, http.StatusNotFound, err)
		return
	}

	if limit := s.config.Builder.MaxSections; limit > 0 && len(s.builder.GetOrderedSections()) >= limit {
		s.writeError(ctx, w, http.StatusConflict,
			errors.NewValidationError(errors.ErrCodeSectionLimit,
				"Maximum number of sections reached ("+strconv.Itoa(limit)+")"))
		return
	}

	section := s.builder.AddSection(tmpl)
	s.writeJSON(ctx, w, http.StatusCreated, section)
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if _, ok := s.builder.GetSectionByID(id); !ok {
		s.writeError(ctx, w, http.StatusNotFound,
			errors.NewValidationError(errors.ErrCodeSectionNotFound, "section not found: "+id))
		return
	}

	var patch map[string]any
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	if err := s.builder.UpdateSection(id, patch); err != nil {
		s.writeError(ctx, w, http.StatusUnprocessableEntity,
			errors.NewUpdateError(errors.ErrCodeUpdateFailed, "Failed to update section", err).WithSection(id))
		return
	}

	section, _ := s.builder.GetSectionByID(id)
	s.writeJSON(ctx, w, http.StatusOK, section)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.builder.GetSectionByID(id); !ok {
		s.writeError(r.Context(), w, http.StatusNotFound,
			errors.NewValidationError(errors.ErrCodeSectionNotFound, "section not found: "+id))
		return
	}

	s.builder.DeleteSection(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req reorderRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	n := len(s.builder.GetOrderedSections())
	if req.From < 0 || req.From >= n || req.To < 0 || req.To >= n {
		s.writeError(ctx, w, http.StatusBadRequest,
			errors.NewValidationError(errors.ErrCodeValidationFailed, "index out of range").
				WithContext("from", req.From).WithContext("to", req.To).WithContext("sections", n))
		return
	}

	s.builder.ReorderSections(req.From, req.To)
	s.writeJSON(ctx, w, http.StatusOK, s.builder.State())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	s.builder.SelectSection(req.ID)
	s.writeJSON(ctx, w, http.StatusOK, s.builder.State())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.builder.ClearSections()
	s.writeJSON(r.Context(), w, http.StatusOK, s.builder.State())
}

// handleExport streams the design as a download. Errors are reported as
// Feedback before any byte of the file is written.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	saver := transfer.WriterSaver{
		Writer: w,
		BeforeWrite: func(filename string) {
			w.Header().Set("Content-Type", transfer.JSONMIMEType)
			w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		},
	}
	pipeline := transfer.NewPipeline(s.builder,
		transfer.WithSaver(saver),
		transfer.WithMaxSize(s.config.Import.MaxFileSize),
		transfer.WithLogger(s.logger),
	)

	feedback := pipeline.Guard(ctx, transfer.ActionExport, func(ctx context.Context) error {
		_, err := pipeline.Export(ctx)
		return err
	}, nil)
	if !feedback.OK() {
		s.writeJSON(ctx, w, http.StatusUnprocessableEntity, feedback)
	}
}

// handleImport reads the design from the raw body. The filename comes from
// X-Filename and the type from Content-Type.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name := r.Header.Get("X-Filename")
	if name == "" {
		name = "design.json"
	}
	file := transfer.File{
		Name:     name,
		MIMEType: r.Header.Get("Content-Type"),
		Size:     r.ContentLength,
		// One byte past the cap is enough for the pipeline to see the overflow.
		Handle: io.LimitReader(r.Body, s.pipeline.MaxSize()+1),
	}

	var importErr error
	feedback := s.pipeline.Guard(ctx, transfer.ActionImport, func(ctx context.Context) error {
		importErr = s.pipeline.Import(ctx, file)
		return importErr
	}, nil)

	status := http.StatusOK
	switch {
	case feedback.OK():
	case errors.HasCode(importErr, errors.ErrCodeFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.HasCode(importErr, errors.ErrCodeFileType):
		status = http.StatusUnsupportedMediaType
	default:
		status = http.StatusBadRequest
	}
	s.writeJSON(ctx, w, status, feedback)
}

// handlePreview renders the page, or its visible text with ?format=text.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sections := s.builder.GetOrderedSections()

	if r.URL.Query().Get("format") == "text" {
		var buf bytes.Buffer
		if err := s.renderer.Page(sections).Render(ctx, &buf); err != nil {
			s.writeError(ctx, w, http.StatusInternalServerError, err)
			return
		}
		text, err := preview.PlainText(buf.String())
		if err != nil {
			s.writeError(ctx, w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, text)
		return
	}

	var buf bytes.Buffer
	md := s.builder.ExportDesign().Metadata
	if err := document(md.Title, s.renderer.Page(sections)).Render(ctx, &buf); err != nil {
		s.writeError(ctx, w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handlePreviewSection re-renders one section for the retry button.
func (s *Server) handlePreviewSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	res, ok := s.renderer.Retry(ctx, s.builder, id)
	if !ok {
		s.writeError(ctx, w, http.StatusNotFound,
			errors.NewValidationError(errors.ErrCodeSectionNotFound, "section not found: "+id))
		return
	}

	var buf bytes.Buffer
	if err := preview.Fragment(res).Render(ctx, &buf); err != nil {
		s.writeError(ctx, w, http.StatusInternalServerError, err)
		return
	}
	if !res.OK() {
		w.Header().Set("X-Render-Error", res.Err.Code)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
