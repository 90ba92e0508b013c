package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
	"github.com/vasiliy-maslov/store-market/internal/auth"
	"github.com/vasiliy-maslov/store-market/internal/confirmation"
	"github.com/vasiliy-maslov/store-market/internal/user"
)

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password1 string `json:"password1" validate:"required,min=8,max=72"`
	Password2 string `json:"password2" validate:"required,eqfield=Password1"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Image     string `json:"image" validate:"max=255"`
}

type UserHandler struct {
	service       user.Service
	confirmations confirmation.Service
	issuer        *auth.Issuer
	validate      *validator.Validate
}

func NewUserHandler(s user.Service, confirmations confirmation.Service, issuer *auth.Issuer) *UserHandler {
	return &UserHandler{
		service:       s,
		confirmations: confirmations,
		issuer:        issuer,
		validate:      apperr.NewValidator(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Get("/confirm-email/{code}", h.confirmEmail)
		r.With(requireAuth).Get("/profile", h.getProfile)
		r.With(requireAuth).Put("/profile", h.updateProfile)
	})
}

func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	created, err := h.service.Register(r.Context(), user.Registration{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password1,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to register user")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *UserHandler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to authenticate user")
		return
	}

	token, expiresAt, err := h.issuer.Issue(u.ID, u.IsStaff)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to issue token")
		return
	}
	respondWithJSON(w, http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetProfile(r.Context(), access.CallerFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load profile")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), access.CallerFrom(r.Context()), user.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Image:     req.Image,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update profile")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

// confirmEmail: неизвестный или просроченный код молча уводит на главную.
func (h *UserHandler) confirmEmail(w http.ResponseWriter, r *http.Request) {
	code, err := uuid.FromString(chi.URLParam(r, "code"))
	if err != nil {
		log.Info().Str("code", chi.URLParam(r, "code")).Msg("Malformed confirmation code")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if err := h.confirmations.Confirm(r.Context(), code); err != nil {
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrExpired) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		respondWithServiceError(w, r, err, "Failed to confirm email")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Email confirmed"})
}
