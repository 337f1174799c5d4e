package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"mailwatch/internal/application"
	"mailwatch/internal/domain/port/driven"
)

// Handler is the HTTP driving adapter. It serves the OAuth consent flow and
// the observability endpoints; the poll loop itself runs on its own timer and
// never depends on inbound traffic.
type Handler struct {
	authSvc   *application.AuthService
	statusSvc *application.StatusService
	logs      *application.LogBuffer
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	authSvc *application.AuthService,
	statusSvc *application.StatusService,
	logs *application.LogBuffer,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		authSvc:   authSvc,
		statusSvc: statusSvc,
		logs:      logs,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /oauth2callback", h.OAuthCallback)
	mux.HandleFunc("GET /logs", h.Logs)
	mux.HandleFunc("GET /logview", h.LogView)
	mux.HandleFunc("GET /healthz", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Root starts the consent flow when no credential is held yet, and reports
// operational status once authorized.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if !h.authSvc.Ready() {
		url := h.authSvc.AuthorizeURL()
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(h.authSvc.State(), h.statusSvc.Snapshot()))
}

// OAuthCallback completes the consent flow: it validates the callback
// parameters, exchanges the authorization code, and confirms in plain HTML.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Warn("consent declined", "error", errParam)
		writeError(w, http.StatusBadRequest, "authorization declined: "+errParam)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	if !h.authSvc.ConsumeState(q.Get("state")) {
		writeError(w, http.StatusBadRequest, "invalid state parameter")
		return
	}

	if _, err := h.authSvc.Exchange(r.Context(), code); err != nil {
		var exchErr *driven.ExchangeError
		if errors.As(err, &exchErr) {
			h.logger.Warn("code exchange rejected", "error", err)
			writeError(w, http.StatusBadRequest, "authorization code rejected")
			return
		}
		h.logger.Error("code exchange failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("<html><body><h1>Authorization complete</h1>" +
		"<p>mailwatch is now polling your inbox. You can close this tab.</p>" +
		"</body></html>"))
}

// Logs returns the buffered log lines, oldest first.
func (h *Handler) Logs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.logs.Lines())
}

// LogView serves the static page that polls /logs.
func (h *Handler) LogView(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, staticFS, "static/logview.html")
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		State:  string(h.authSvc.State()),
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
