package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
	"github.com/vasiliy-maslov/store-market/internal/cart"
	"github.com/vasiliy-maslov/store-market/internal/catalog"
	"github.com/vasiliy-maslov/store-market/internal/order"
	"github.com/vasiliy-maslov/store-market/internal/user"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ValidationErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

// respondWithError отправляет JSON ошибку
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrExpired):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

var clientMessages = []struct {
	err     error
	message string
}{
	{catalog.ErrProductNotFound, "Product not found"},
	{cart.ErrProductNotFound, "Product not found"},
	{catalog.ErrCategoryNotFound, "Category not found"},
	{catalog.ErrCategoryInUse, "Category has products and cannot be deleted"},
	{catalog.ErrCategoryExists, "Category already exists"},
	{catalog.ErrSupplierNotFound, "Supplier not found"},
	{catalog.ErrNoProducts, "No products in this category"},
	{catalog.ErrPageNotFound, "Page not found"},
	{order.ErrOrderNotFound, "Order not found"},
	{user.ErrNotFound, "User not found"},
	{user.ErrUserExists, "User with this username or email already exists"},
	{user.ErrInvalidCredentials, "Invalid username or password"},
	{apperr.ErrUnauthorized, "Authentication required"},
	{apperr.ErrForbidden, "Insufficient privileges"},
}

// respondWithServiceError переводит ошибку сервиса в ответ. fallback уходит клиенту при 5xx.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var vErr *apperr.ValidationError
	if errors.As(err, &vErr) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatFieldErrors(vErr.Fields),
		})
		return
	}

	statusCode := mapErrorToStatusCode(err)
	if statusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
		respondWithError(w, statusCode, fallback)
		return
	}

	log.Warn().Err(err).Str("path", r.URL.Path).Int("status", statusCode).Msg("Request rejected")

	message := http.StatusText(statusCode)
	for _, cm := range clientMessages {
		if errors.Is(err, cm.err) {
			message = cm.message
			break
		}
	}
	respondWithError(w, statusCode, message)
}

func formatValidationErrors(validationErrors validator.ValidationErrors) []string {
	details := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		details = append(details, fmt.Sprintf("Field '%s' %s", fe.Field(), apperr.FieldMessage(fe)))
	}
	return details
}

func formatFieldErrors(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	details := make([]string, 0, len(names))
	for _, name := range names {
		details = append(details, fmt.Sprintf("Field '%s' %s", name, fields[name]))
	}
	return details
}

// decodeAndValidate читает тело запроса в dst и проверяет его. При ошибке ответ уже отправлен.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}

	return true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		log.Warn().Str(name, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s parameter", name))
		return 0, false
	}
	return id, true
}

// parseCategoryQuery читает необязательный ?category=.
func parseCategoryQuery(w http.ResponseWriter, r *http.Request) (*int64, bool) {
	raw := r.URL.Query().Get("category")
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid category parameter")
		return nil, false
	}
	return &id, true
}
