package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/pagebuilder/internal/config"
	"github.com/conneroisu/pagebuilder/internal/errors"
	"github.com/conneroisu/pagebuilder/internal/store"
	"github.com/conneroisu/pagebuilder/internal/transfer"
	"github.com/conneroisu/pagebuilder/internal/types"
)

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.Editor.Debounce = 20 * time.Millisecond
	if mutate != nil {
		mutate(cfg)
	}

	var seq atomic.Int64
	builder := store.New(store.WithIDGenerator(func() string {
		return fmt.Sprintf("section-%d", seq.Add(1))
	}))

	srv, err := New(cfg, WithBuilder(builder))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Run(ctx))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	})

	return &testEnv{srv: srv, ts: ts}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func (e *testEnv) add(t *testing.T, templateID string) map[string]any {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/sections", addSectionRequest{TemplateID: templateID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[map[string]any](t, resp)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["version"])
	assert.Contains(t, body, "checks")
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/templates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[map[string]any](t, resp)
	assert.Len(t, all["templates"], 4)
	assert.ElementsMatch(t, []any{"Navigation", "Content"}, all["categories"])

	resp = env.do(t, http.MethodGet, "/api/templates?category=Navigation", nil)
	nav := decode[map[string]any](t, resp)
	ids := []string{}
	for _, tmpl := range nav["templates"].([]any) {
		ids = append(ids, tmpl.(map[string]any)["id"].(string))
	}
	assert.ElementsMatch(t, []string{"header", "footer"}, ids)

	resp = env.do(t, http.MethodGet, "/api/templates?category=Nope", nil)
	none := decode[map[string]any](t, resp)
	assert.Empty(t, none["templates"])
}

func TestAddSection(t *testing.T) {
	env := newTestEnv(t, nil)

	section := env.add(t, "hero")
	assert.Equal(t, "section-1", section["id"])
	assert.Equal(t, "hero", section["type"])
	assert.EqualValues(t, 0, section["order"])
	props := section["props"].(map[string]any)
	assert.Equal(t, "Welcome to Our Website", props["title"])

	resp := env.do(t, http.MethodGet, "/api/sections", nil)
	state := decode[map[string]any](t, resp)
	assert.Len(t, state["sections"], 1)
	assert.Equal(t, false, state["isDragging"])
}

func TestAddSectionErrors(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Builder.MaxSections = 2 })

	resp := env.do(t, http.MethodPost, "/api/sections", addSectionRequest{TemplateID: "pricing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, decode[ErrorResponse](t, resp).Code)

	resp = env.do(t, http.MethodPost, "/api/sections", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.add(t, "header")
	env.add(t, "footer")
	resp = env.do(t, http.MethodPost, "/api/sections", addSectionRequest{TemplateID: "hero"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, errors.ErrCodeSectionLimit, body.Code)
	assert.Contains(t, body.Message, "(2)")
	assert.Len(t, env.srv.Builder().GetOrderedSections(), 2)
}

func TestUpdateSection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "header")

	resp := env.do(t, http.MethodPatch, "/api/sections/section-1", map[string]any{"title": "Acme"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	section := decode[map[string]any](t, resp)
	assert.Equal(t, "Acme", section["props"].(map[string]any)["title"])

	resp = env.do(t, http.MethodPatch, "/api/sections/section-1", map[string]any{"navigationItems": "not a list"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, errors.ErrCodeUpdateFailed, body.Code)

	got, ok := env.srv.Builder().GetSectionByID("section-1")
	require.True(t, ok)
	assert.Equal(t, "Acme", got.Props.(types.HeaderProps).Title)

	resp = env.do(t, http.MethodPatch, "/api/sections/missing", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteSection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "header")
	env.add(t, "footer")

	resp := env.do(t, http.MethodDelete, "/api/sections/section-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	sections := env.srv.Builder().GetOrderedSections()
	require.Len(t, sections, 1)
	assert.Equal(t, "section-2", sections[0].ID)
	assert.Equal(t, 0, sections[0].Order)

	resp = env.do(t, http.MethodDelete, "/api/sections/section-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReorderSelectClear(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "header")
	env.add(t, "hero")
	env.add(t, "footer")

	resp := env.do(t, http.MethodPost, "/api/sections/reorder", reorderRequest{From: 0, To: 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ids []string
	for _, s := range env.srv.Builder().GetOrderedSections() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"section-2", "section-3", "section-1"}, ids)

	resp = env.do(t, http.MethodPost, "/api/sections/reorder", reorderRequest{From: 0, To: 3})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/select", selectRequest{ID: "section-3"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "section-3", decode[map[string]any](t, resp)["selectedSectionId"])

	resp = env.do(t, http.MethodPost, "/api/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	state := env.srv.Builder().State()
	assert.Empty(t, state.Sections)
	assert.Empty(t, state.SelectedSectionID)
}

func TestExportEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/export", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Content-Disposition"))

	fb := decode[transfer.Feedback](t, resp)
	assert.Equal(t, transfer.FeedbackError, fb.Kind)
	assert.Equal(t, "No sections to export. Please add some sections to your design first.", fb.Message)
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "header")
	env.add(t, "content")

	resp := env.do(t, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, transfer.JSONMIMEType, resp.Header.Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="website-design-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.json"$`,
		resp.Header.Get("Content-Disposition"))
	exported := []byte(readBody(t, resp))

	var design types.ExportData
	require.NoError(t, json.Unmarshal(exported, &design))
	assert.Equal(t, types.SchemaVersion, design.Version)
	assert.Len(t, design.Sections, 2)

	env.do(t, http.MethodPost, "/api/clear", nil)
	require.Empty(t, env.srv.Builder().GetOrderedSections())

	resp = env.do(t, http.MethodPost, "/api/import", exported,
		"Content-Type", "application/json", "X-Filename", "design.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fb := decode[transfer.Feedback](t, resp)
	assert.True(t, fb.OK())
	assert.Equal(t, "Design imported successfully!", fb.Message)

	sections := env.srv.Builder().GetOrderedSections()
	require.Len(t, sections, 2)
	assert.Equal(t, types.SectionTypeHeader, sections[0].Type)
	assert.Equal(t, types.SectionTypeContent, sections[1].Type)
}

func TestImportErrors(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Import.MaxFileSize = 64 })

	tests := []struct {
		name    string
		body    string
		headers []string
		status  int
		message string
	}{
		{
			name:    "wrong type",
			body:    "hello",
			headers: []string{"Content-Type", "text/plain", "X-Filename", "notes.txt"},
			status:  http.StatusUnsupportedMediaType,
			message: "Please select a valid JSON file",
		},
		{
			name:    "too large",
			body:    `{"sections":[` + strings.Repeat(" ", 100) + `]}`,
			headers: []string{"Content-Type", "application/json"},
			status:  http.StatusRequestEntityTooLarge,
			message: "File size too large. Please select a file smaller than 64 bytes",
		},
		{
			name:    "bad json",
			body:    "{nope",
			headers: []string{"X-Filename", "design.json"},
			status:  http.StatusBadRequest,
			message: "Invalid JSON file. Please check the file format and try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/import", tt.body, tt.headers...)
			assert.Equal(t, tt.status, resp.StatusCode)
			fb := decode[transfer.Feedback](t, resp)
			assert.Equal(t, transfer.FeedbackError, fb.Kind)
			assert.Equal(t, transfer.ActionImport, fb.Action)
			assert.Equal(t, tt.message, fb.Message)
		})
	}
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/preview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body := readBody(t, resp)
	assert.Contains(t, body, "No sections added yet")
	assert.Contains(t, body, "<title>Website Design</title>")
	assert.Contains(t, body, `src="/static/preview.js"`)

	env.add(t, "hero")
	body = readBody(t, env.do(t, http.MethodGet, "/preview", nil))
	assert.Contains(t, body, `data-section-type="hero"`)
	assert.Contains(t, body, "Welcome to Our Website")

	resp = env.do(t, http.MethodGet, "/preview?format=text", nil)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
	text := readBody(t, resp)
	assert.Contains(t, text, "Welcome to Our Website")
	assert.NotContains(t, text, "<")
}

func TestPreviewSection(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "footer")

	resp := env.do(t, http.MethodGet, "/preview/sections/section-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Render-Error"))
	assert.Contains(t, readBody(t, resp), `data-section-id="section-1"`)

	resp = env.do(t, http.MethodGet, "/preview/sections/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticScriptAndRoot(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/static/preview.js", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "data-retry-section")

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	rootResp, err := client.Get(env.ts.URL + "/")
	require.NoError(t, err)
	defer rootResp.Body.Close()
	assert.Equal(t, http.StatusFound, rootResp.StatusCode)
	assert.Equal(t, "/preview", rootResp.Header.Get("Location"))
}
