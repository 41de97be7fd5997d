package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ysvs/internal/certificate/models"
	id "ysvs/pkg/domain"
	dErrors "ysvs/pkg/domain-errors"
	"ysvs/pkg/platform/httputil"
	"ysvs/pkg/requestcontext"
)

// Service is the slice of the certificate service the transport layer uses.
type Service interface {
	Issue(ctx context.Context, regID id.RegistrationID, templateID *id.TemplateID) (*models.Certificate, error)
	IssueForEvent(ctx context.Context, eventID id.EventID, templateID *id.TemplateID) (*models.BulkResult, error)
	Revoke(ctx context.Context, certID id.CertificateID, reason string) (*models.Certificate, error)
	Verify(ctx context.Context, serialNumber string) (*models.VerificationResult, error)
	GetCertificate(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated certificate routes. Issuance and
// revocation are administrative.
func (h *Handler) Register(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/certificates/{id}", h.handleGet)
	r.With(requireAdmin).Post("/certificates/generate/{registrationID}", h.handleIssue)
	r.With(requireAdmin).Post("/certificates/generate-bulk/{eventID}", h.handleIssueBulk)
	r.With(requireAdmin).Post("/certificates/{id}/revoke", h.handleRevoke)
}

// RegisterPublic mounts the unauthenticated verification lookup.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/certificates/verify/{serial}", h.handleVerify)
}

type issueRequest struct {
	TemplateID string `json:"template_id,omitempty"`
}

func (h *Handler) parseTemplateID(raw string) (*id.TemplateID, error) {
	if raw == "" {
		return nil, nil
	}
	templateID, err := id.ParseTemplateID(raw)
	if err != nil {
		return nil, err
	}
	return &templateID, nil
}

// decodeIssueRequest tolerates an empty body; the template selection is
// optional.
func (h *Handler) decodeIssueRequest(w http.ResponseWriter, r *http.Request) (*id.TemplateID, bool) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, true
	}
	req, ok := httputil.DecodeJSON[issueRequest](w, r, h.logger, r.Context(), requestcontext.RequestID(r.Context()))
	if !ok {
		return nil, false
	}
	templateID, err := h.parseTemplateID(req.TemplateID)
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return templateID, true
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "registrationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	templateID, ok := h.decodeIssueRequest(w, r)
	if !ok {
		return
	}

	cert, err := h.service.Issue(ctx, regID, templateID)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate issuance failed",
			"request_id", requestcontext.RequestID(ctx),
			"registration_id", regID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, cert)
}

func (h *Handler) handleIssueBulk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	templateID, ok := h.decodeIssueRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.IssueForEvent(ctx, eventID, templateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "bulk issuance completed",
		"request_id", requestcontext.RequestID(ctx),
		"event_id", eventID.String(),
		"generated", result.Generated,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (req *revokeRequest) Validate() error {
	if strings.TrimSpace(req.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "revocation reason must not be empty")
	}
	return nil
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[revokeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	cert, err := h.service.Revoke(ctx, certID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	certID, err := id.ParseCertificateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cert, err := h.service.GetCertificate(r.Context(), certID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cert)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	serialNumber := strings.TrimSpace(chi.URLParam(r, "serial"))
	result, err := h.service.Verify(r.Context(), serialNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
