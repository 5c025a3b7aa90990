package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/web/internal/middleware"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/web/internal/render"
	"github.com/oriarh/OpenEMR-EHR-Integration-System/web/internal/session"
)

// Handler holds dependencies for all web handlers
type Handler struct {
	tokens         *openemr.TokenManager
	patients       *openemr.PatientAPI
	sessionManager *session.Manager
	templates      *render.TemplateSet
	upstreamBase   string // REST API root, shown on the status page
	fhirBase       string // FHIR root, shown on the status page
	log            *slog.Logger
}

// New creates a new handler with dependencies
func New(tokens *openemr.TokenManager, patients *openemr.PatientAPI, sessionManager *session.Manager, templates *render.TemplateSet, upstreamBase, fhirBase string, logger *slog.Logger) *Handler {
	return &Handler{
		tokens:         tokens,
		patients:       patients,
		sessionManager: sessionManager,
		templates:      templates,
		upstreamBase:   upstreamBase,
		fhirBase:       fhirBase,
		log:            logger.With(slog.String("component", "web_handler")),
	}
}

// newTemplateData creates a new template data map with standard fields populated
// Callers can add page-specific fields to the returned map
func (h *Handler) newTemplateData(r *http.Request, w http.ResponseWriter) map[string]interface{} {
	return map[string]interface{}{
		"Version": render.Version,
		"Flashes": h.sessionManager.Flashes(r, w),
	}
}

// renderTemplate renders a template with data
func (h *Handler) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	if h.templates == nil {
		http.Error(w, "Templates not loaded", http.StatusInternalServerError)
		return
	}
	h.log.Debug("rendering template", slog.String("template", name))

	// Execute the named page template using the TemplateSet's Execute method
	// This will render the "base" template with the page's specific content
	err := h.templates.Execute(w, name, data)
	if err != nil {
		h.log.Error("template rendering failed",
			slog.String("template", name),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// apiError is the JSON error body for the /api endpoints
type apiError struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encoding JSON response failed", slog.String("error", err.Error()))
	}
}

// writeJSONError maps a proxy error onto a JSON response. Upstream rejections
// keep their original status (500 when the request never got a status);
// token fetch failures become 502 since the upstream, not this proxy, is the
// unhealthy party.
func (h *Handler) writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var ue *openemr.UpstreamError
	var afe *openemr.AuthFetchError
	switch {
	case errors.As(err, &ue):
		h.writeJSON(w, ue.HTTPStatus(), apiError{
			Error:     "upstream_error",
			Detail:    ue.Detail,
			RequestID: requestID,
		})
	case errors.As(err, &afe):
		h.writeJSON(w, http.StatusBadGateway, apiError{
			Error:     "upstream_auth_failed",
			Detail:    afe.Reason,
			RequestID: requestID,
		})
	default:
		h.writeJSON(w, http.StatusInternalServerError, apiError{
			Error:     "internal_error",
			RequestID: requestID,
		})
	}

	h.log.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", requestID),
		slog.String("error", err.Error()))
}

// htmlError is the HTML-page counterpart of writeJSONError
func (h *Handler) htmlError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := http.StatusInternalServerError

	var ue *openemr.UpstreamError
	var afe *openemr.AuthFetchError
	switch {
	case errors.As(err, &ue):
		status = ue.HTTPStatus()
	case errors.As(err, &afe):
		status = http.StatusBadGateway
	}

	h.log.Error("page request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	http.Error(w, msg, status)
}
