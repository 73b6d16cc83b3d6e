package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/errors"
	"github.com/hpungsan/diarist/internal/ops"
	"github.com/hpungsan/diarist/internal/report"
	"github.com/hpungsan/diarist/internal/session"
	"github.com/hpungsan/diarist/internal/store"
	"github.com/hpungsan/diarist/internal/validation"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	session  *session.Session
	store    *store.Store
	cfg      *config.Config
	renderer *Renderer
	log      zerolog.Logger
}

// HandleDocuments handles GET /documents: stored documents, most recent first.
func (h *Handlers) HandleDocuments(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.store, ops.ListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "documents", DocumentsPageData{
		PageData:        h.renderer.page("Documents", "documents"),
		Items:           result.Items,
		Pagination:      result.Pagination,
		Capacity:        h.store.Capacity(),
		RecentlyRemoved: result.RecentlyRemoved,
	})
}

// HandleReport handles GET /documents/{key}: the Markdown report of one document.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.fetch(r, false)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	name := displayName(doc.FileName, doc.Key)
	md := report.Render(report.Metadata{
		Title:        name,
		Key:          doc.Key,
		FileName:     doc.FileName,
		SavedAt:      time.UnixMilli(doc.SavedAt),
		HistoryDepth: doc.HistoryDepth,
	}, doc.Segments, doc.ManualSpeakers)
	stats := report.Stats(doc.Segments, doc.ManualSpeakers)

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"key":      doc.Key,
			"stats":    stats,
			"markdown": md,
		})
		return
	}

	h.renderer.renderPage(w, r, "report", ReportPageData{
		PageData:     h.renderer.page(name, "documents"),
		Document:     doc,
		Stats:        stats,
		RenderedHTML: renderMarkdown(md),
		DisplayName:  name,
	})
}

// HandleDocumentLabels handles GET /documents/{key}/rttm: download as RTTM.
func (h *Handlers) HandleDocumentLabels(w http.ResponseWriter, r *http.Request) {
	doc, err := h.fetch(r, true)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	writeLabels(w, *doc.Labels, doc.FileName, doc.Key)
}

// HandleDeleteDocument handles DELETE /documents/{key}.
func (h *Handlers) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("document key is required"))
		return
	}

	result, err := ops.DeleteDocument(r.Context(), h.store, ops.DeleteInput{Target: ops.Target{Key: key}})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/documents")
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/documents", http.StatusFound)
}

func (h *Handlers) fetch(r *http.Request, labels bool) (*ops.FetchOutput, error) {
	key := r.PathValue("key")
	if key == "" {
		return nil, errors.NewInvalidRequest("document key is required")
	}
	return ops.Fetch(r.Context(), h.store, h.cfg, ops.FetchInput{
		Target:        ops.Target{Key: key},
		IncludeLabels: labels,
	})
}

// writeLabels sends RTTM text as a file download named after the audio.
func writeLabels(w http.ResponseWriter, labels, fileName, key string) {
	stem := fileName
	if stem == "" {
		stem = shortKey(key)
	}
	if labels != "" {
		labels += "\n"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ops.SanitizeForFilename(stem)+ops.LabelExt))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, labels)
}

// maxJSONBody caps request bodies for the JSON endpoints.
const maxJSONBody = 1 << 20

// decodeJSON reads a JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return validation.Struct(dst)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// parseFloatParam parses a float query parameter; ok is false when absent or malformed.
func parseFloatParam(r *http.Request, name string) (float64, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// displayName returns the audio file name if known, or a truncated key.
func displayName(fileName, key string) string {
	if fileName != "" {
		return fileName
	}
	if len(key) > 12 {
		return key[:12] + "..."
	}
	return key
}
