package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
	"github.com/vasiliy-maslov/store-market/internal/cart"
	"github.com/vasiliy-maslov/store-market/internal/order"
)

type UpdateStatusRequest struct {
	Status *int `json:"status" validate:"required,oneof=0 1 2 3"`
}

type OrderResponse struct {
	ID          int64               `json:"id"`
	FirstName   string              `json:"first_name"`
	LastName    string              `json:"last_name"`
	Email       string              `json:"email"`
	Address     string              `json:"address"`
	CreatedAt   time.Time           `json:"created_at"`
	Status      int                 `json:"status"`
	StatusLabel string              `json:"status_label"`
	Items       []cart.SnapshotItem `json:"items"`
	ToPay       int64               `json:"to_pay"`
	ToPayMinor  int64               `json:"to_pay_minor"`
	Total       string              `json:"total"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		FirstName:   o.Recipient.FirstName,
		LastName:    o.Recipient.LastName,
		Email:       o.Recipient.Email,
		Address:     o.Recipient.Address,
		CreatedAt:   o.CreatedAt,
		Status:      int(o.Status),
		StatusLabel: o.Status.Label(),
		Items:       o.Items,
		ToPay:       o.ToPay,
		ToPayMinor:  o.ToPayMinor,
		Total:       o.ToPayAmount().StringFixed(2),
	}
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(s order.Service) *OrderHandler {
	return &OrderHandler{
		service:  s,
		validate: apperr.NewValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Route("/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.checkout)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
	})
	router.With(authorize(access.ActionUpdate)).Patch("/api/orders/{id}/status", h.updateStatus)
}

func (h *OrderHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var recipient order.Recipient
	if !decodeAndValidate(w, r, h.validate, &recipient) {
		return
	}

	created, err := h.service.Checkout(r.Context(), access.CallerFrom(r.Context()), recipient)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create order")
		return
	}
	respondWithJSON(w, http.StatusCreated, toOrderResponse(created))
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context(), access.CallerFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list orders")
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), access.CallerFrom(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve order")
		return
	}
	respondWithJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	err := h.service.UpdateStatus(r.Context(), access.CallerFrom(r.Context()), id, order.Status(*req.Status))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update order status")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
