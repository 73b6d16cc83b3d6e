// Package web serves the diarist browser UI: a JSON API over one live
// editing session plus read-only pages for the stored documents.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/diarist/internal/config"
	"github.com/hpungsan/diarist/internal/session"
	"github.com/hpungsan/diarist/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// NewServer creates the HTTP server for the diarist web UI. sess is the
// live session the /session routes edit; st backs the /documents pages.
func NewServer(sess *session.Session, st *store.Store, cfg *config.Config, version, bind string, port int, log zerolog.Logger) *http.Server {
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create template sub-FS")
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create static sub-FS")
	}

	h := &Handlers{
		session:  sess,
		store:    st,
		cfg:      cfg,
		renderer: NewRenderer(templateSub, version, log),
		log:      log,
	}

	mux := http.NewServeMux()
	h.routes(mux)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (h *Handlers) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/session", http.StatusFound)
	})

	mux.HandleFunc("GET /session", h.HandleSession)
	mux.HandleFunc("POST /session/audio", h.HandleLoadAudio)
	mux.HandleFunc("GET /session/labels", h.HandleExportLabels)
	mux.HandleFunc("POST /session/labels", h.HandleImportLabels)
	mux.HandleFunc("POST /session/segments", h.HandleCreateSegment)
	mux.HandleFunc("PATCH /session/segments/{id}", h.HandleUpdateSegment)
	mux.HandleFunc("DELETE /session/segments/{id}", h.HandleDeleteSegment)
	mux.HandleFunc("POST /session/segments/{id}/seek", h.HandleSeekToSegment)
	mux.HandleFunc("POST /session/speakers", h.HandleAddSpeaker)
	mux.HandleFunc("DELETE /session/speakers/{id}", h.HandleRemoveSpeaker)
	mux.HandleFunc("POST /session/speakers/{id}/rename", h.HandleRenameSpeaker)
	mux.HandleFunc("POST /session/speakers/{id}/merge", h.HandleMergeSpeakers)
	mux.HandleFunc("POST /session/undo", h.HandleUndo)
	mux.HandleFunc("POST /session/redo", h.HandleRedo)
	mux.HandleFunc("POST /session/gesture", h.HandleGesture)
	mux.HandleFunc("POST /session/label-width", h.HandleLabelWidth)
	mux.HandleFunc("POST /session/transport", h.HandleTransport)
	mux.HandleFunc("POST /session/save", h.HandleSave)

	mux.HandleFunc("GET /documents", h.HandleDocuments)
	mux.HandleFunc("GET /documents/{key}", h.HandleReport)
	mux.HandleFunc("GET /documents/{key}/rttm", h.HandleDocumentLabels)
	mux.HandleFunc("DELETE /documents/{key}", h.HandleDeleteDocument)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and shuts it down gracefully on SIGINT/SIGTERM.
func Run(srv *http.Server, log zerolog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", "http://"+srv.Addr).Msg("diarist UI running")
	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn().Msg("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info().Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
