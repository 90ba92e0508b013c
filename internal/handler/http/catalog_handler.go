package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
	"github.com/vasiliy-maslov/store-market/internal/catalog"
)

type ProductResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Quantity    int       `json:"quantity"`
	Image       string    `json:"image,omitempty"`
	CategoryID  int64     `json:"category_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProductPageResponse struct {
	Items    []ProductResponse `json:"items"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int               `json:"total"`
	HasNext  bool              `json:"has_next"`
}

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Image       string          `json:"image" validate:"max=255"`
	CategoryID  int64           `json:"category_id" validate:"required"`
}

type UpdatePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}

type CreateCategoryRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

type CreateSupplierRequest struct {
	Name string `json:"name" validate:"required"`
	City string `json:"city" validate:"required"`
}

func toProductResponse(p catalog.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Quantity:    p.Quantity,
		Image:       p.Image,
		CategoryID:  p.CategoryID,
		CreatedAt:   p.CreatedAt,
	}
}

func toProductResponses(products []catalog.Product) []ProductResponse {
	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	return resp
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(s catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		service:  s,
		validate: apperr.NewValidator(),
	}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.browseProducts)
	router.Get("/categories", h.listCategories)

	router.Route("/api/products", func(r chi.Router) {
		r.With(authorize(access.ActionList)).Get("/", h.listProducts)
		r.With(authorize(access.ActionCreate)).Post("/", h.createProduct)
		r.With(authorize(access.ActionRetrieve)).Get("/{id}", h.getProduct)
		r.With(authorize(access.ActionUpdate)).Patch("/{id}/price", h.updateProductPrice)
		r.With(authorize(access.ActionDestroy)).Delete("/{id}", h.deleteProduct)
	})
	router.Route("/api/categories", func(r chi.Router) {
		r.With(authorize(access.ActionList)).Get("/", h.listCategories)
		r.With(authorize(access.ActionCreate)).Post("/", h.createCategory)
		r.With(authorize(access.ActionRetrieve)).Get("/{id}", h.getCategory)
		r.With(authorize(access.ActionDestroy)).Delete("/{id}", h.deleteCategory)
	})
	router.Route("/api/suppliers", func(r chi.Router) {
		r.With(authorize(access.ActionList)).Get("/", h.listSuppliers)
		r.With(authorize(access.ActionCreate)).Post("/", h.createSupplier)
		r.With(authorize(access.ActionDestroy)).Delete("/{id}", h.deleteSupplier)
		r.With(authorize(access.ActionUpdate)).Put("/{id}/products/{productID}", h.linkSupplierProduct)
	})
}

func (h *CatalogHandler) browseProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseCategoryQuery(w, r)
	if !ok {
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid page parameter")
			return
		}
		page = n
	}

	result, err := h.service.BrowseProducts(r.Context(), catalog.ProductFilter{CategoryID: categoryID, Page: page})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, ProductPageResponse{
		Items:    toProductResponses(result.Items),
		Page:     result.Page,
		PageSize: result.PageSize,
		Total:    result.Total,
		HasNext:  result.HasNext(),
	})
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := parseCategoryQuery(w, r)
	if !ok {
		return
	}

	products, err := h.service.ListProducts(r.Context(), categoryID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &catalog.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Image:       req.Image,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, toProductResponse(*product))
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve product")
		return
	}
	respondWithJSON(w, http.StatusOK, toProductResponse(*product))
}

func (h *CatalogHandler) updateProductPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdatePriceRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	if err := h.service.UpdateProductPrice(r.Context(), id, req.Price); err != nil {
		respondWithServiceError(w, r, err, "Failed to update product price")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), &catalog.Category{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create category")
		return
	}
	respondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to retrieve category")
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list suppliers")
		return
	}
	respondWithJSON(w, http.StatusOK, suppliers)
}

func (h *CatalogHandler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}

	supplier, err := h.service.CreateSupplier(r.Context(), &catalog.Supplier{Name: req.Name, City: req.City})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create supplier")
		return
	}
	respondWithJSON(w, http.StatusCreated, supplier)
}

func (h *CatalogHandler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		respondWithServiceError(w, r, err, "Failed to delete supplier")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) linkSupplierProduct(w http.ResponseWriter, r *http.Request) {
	supplierID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	productID, ok := parseIDParam(w, r, "productID")
	if !ok {
		return
	}

	if err := h.service.LinkSupplierProduct(r.Context(), supplierID, productID); err != nil {
		respondWithServiceError(w, r, err, "Failed to link supplier to product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
