package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/cart"
)

type CartLineResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Price       string `json:"price"`
}

type CartResponse struct {
	Lines      []CartLineResponse `json:"lines"`
	TotalPrice string             `json:"total_price"`
	TotalCount int                `json:"total_count"`
}

func toCartLineResponse(line cart.Line) CartLineResponse {
	return CartLineResponse{
		ID:          line.ID,
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		UnitPrice:   line.UnitPrice.StringFixed(2),
		Quantity:    line.Quantity,
		Price:       line.Price.StringFixed(2),
	}
}

type CartHandler struct {
	service cart.Service
}

func NewCartHandler(s cart.Service) *CartHandler {
	return &CartHandler{service: s}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Route("/cart", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", h.getCart)
		r.Post("/products/{productID}", h.addProduct)
		r.Delete("/lines/{lineID}", h.removeLine)
	})
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), access.CallerFrom(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load cart")
		return
	}

	lines := make([]CartLineResponse, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		lines = append(lines, toCartLineResponse(line))
	}
	respondWithJSON(w, http.StatusOK, CartResponse{
		Lines:      lines,
		TotalPrice: summary.TotalPrice.StringFixed(2),
		TotalCount: summary.TotalCount,
	})
}

func (h *CartHandler) addProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "productID")
	if !ok {
		return
	}

	line, err := h.service.AddToCart(r.Context(), access.CallerFrom(r.Context()), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add product to cart")
		return
	}
	respondWithJSON(w, http.StatusCreated, toCartLineResponse(*line))
}

// removeLine всегда отвечает 204: удаление чужой или несуществующей строки ничего не делает.
func (h *CartHandler) removeLine(w http.ResponseWriter, r *http.Request) {
	lineID, ok := parseIDParam(w, r, "lineID")
	if !ok {
		return
	}

	if err := h.service.RemoveLine(r.Context(), access.CallerFrom(r.Context()), lineID); err != nil {
		respondWithServiceError(w, r, err, "Failed to remove cart line")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
