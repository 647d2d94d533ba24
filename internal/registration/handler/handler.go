package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"signup/internal/registration/models"
	id "signup/pkg/domain"
	dErrors "signup/pkg/domain-errors"
	"signup/pkg/platform/httputil"
	"signup/pkg/requestcontext"
)

// Service defines the registration operations the HTTP layer drives.
type Service interface {
	Start(ctx context.Context, email string) (*models.Registration, error)
	CompleteInitialInfo(ctx context.Context, regID id.RegistrationID, info models.InitialInfo) (*models.Registration, error)
	CompleteAccountInfo(ctx context.Context, info models.AccountInfo) (*models.Registration, error)
	Get(ctx context.Context, regID id.RegistrationID) (*models.Registration, error)
	CanClaimEmail(ctx context.Context, email string) (bool, error)
}

// Handler serves the registration endpoints.
type Handler struct {
	service   Service
	logger    *slog.Logger
	validator *requestValidator
}

// New creates a registration Handler.
func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:   service,
		logger:    logger,
		validator: newRequestValidator(),
	}
}

// Register mounts the registration routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/registrations", func(r chi.Router) {
		r.Post("/", h.handleStart)
		r.Get("/availability", h.handleAvailability)
		r.Get("/{id}", h.handleGet)
		r.Post("/{id}/initial-info", h.handleInitialInfo)
		r.Post("/{id}/account-info", h.handleAccountInfo)
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req StartRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validator.Struct(req); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	reg, err := h.service.Start(ctx, req.Email)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.Header().Set("Location", "/registrations/"+reg.ID().String())
	httputil.WriteJSON(w, http.StatusCreated, toResponse(reg))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	reg, err := h.service.Get(ctx, regID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(reg))
}

func (h *Handler) handleInitialInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	regID, err := id.ParseRegistrationID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	var req InitialInfoRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validator.Struct(req); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	reg, err := h.service.CompleteInitialInfo(ctx, regID, models.InitialInfo{
		Email:    req.Email,
		Password: req.Password,
		ClientID: req.ClientID,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(reg))
}

func (h *Handler) handleAccountInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pathID := chi.URLParam(r, "id")
	var req AccountInfoRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.RegistrationID != "" && req.RegistrationID != pathID {
		h.writeError(ctx, w, dErrors.New(dErrors.CodeBadRequest, "registration_id does not match the path"))
		return
	}
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.CountryCodeIso2 = strings.ToUpper(strings.TrimSpace(req.CountryCodeIso2))
	if err := h.validator.Struct(req); err != nil {
		h.writeError(ctx, w, err)
		return
	}

	reg, err := h.service.CompleteAccountInfo(ctx, models.AccountInfo{
		PhoneNumber:     req.PhoneNumber,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		CountryCodeIso2: req.CountryCodeIso2,
		RegistrationID:  pathID,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(reg))
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if err := h.validator.Struct(StartRequest{Email: email}); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	available, err := h.service.CanClaimEmail(ctx, email)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AvailabilityResponse{Email: email, Available: available})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httputil.DecodeJSON(r, dst); err != nil {
		h.writeError(r.Context(), w, err)
		return false
	}
	return true
}

// writeError logs server-side failures before rendering.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "registration request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err)
	} else {
		h.logger.InfoContext(ctx, "registration request rejected",
			"request_id", requestcontext.RequestID(ctx),
			"code", dErrors.CodeOf(err))
	}
	httputil.WriteError(w, err)
}
