package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ysvs/internal/registration/models"
	"ysvs/internal/registration/service"
	id "ysvs/pkg/domain"
	"ysvs/pkg/platform/httputil"
	"ysvs/pkg/requestcontext"
)

// Service is the slice of the registration service the transport layer uses.
type Service interface {
	Register(ctx context.Context, input service.RegisterInput) (*models.Registration, error)
	Cancel(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	MarkAttendance(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	GetRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	ListMyRegistrations(ctx context.Context) ([]*models.Registration, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the registration routes. The router has already applied
// authentication; the admin gate wraps the attendance route here.
func (h *Handler) Register(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Post("/events/{eventID}/register", h.handleRegister)
	r.Get("/registrations", h.handleListMine)
	r.Get("/registrations/{id}", h.handleGet)
	r.Post("/registrations/{id}/cancel", h.handleCancel)
	r.With(requireAdmin).Post("/registrations/{id}/attendance", h.handleMarkAttendance)
}

type registerRequest struct {
	TicketTypeID string         `json:"ticket_type_id,omitempty"`
	FormData     map[string]any `json:"form_data,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeJSON[registerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	input := service.RegisterInput{EventID: eventID, FormData: req.FormData}
	if req.TicketTypeID != "" {
		ticketID, err := id.ParseTicketTypeID(req.TicketTypeID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		input.TicketTypeID = &ticketID
	}

	reg, err := h.service.Register(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "registration rejected",
			"request_id", requestID,
			"event_id", eventID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.ListMyRegistrations(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if regs == nil {
		regs = []*models.Registration{}
	}
	httputil.WriteJSON(w, http.StatusOK, regs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := h.service.GetRegistration(r.Context(), regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := h.service.Cancel(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) handleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := h.service.MarkAttendance(ctx, regID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}
