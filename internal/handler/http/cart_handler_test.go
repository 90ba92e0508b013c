package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/cart"
	storeHandler "github.com/vasiliy-maslov/store-market/internal/handler/http"
)

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddToCart(ctx context.Context, caller access.Caller, productID int64) (*cart.Line, error) {
	args := m.Called(ctx, caller, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Line), args.Error(1)
}

func (m *MockCartService) RemoveLine(ctx context.Context, caller access.Caller, lineID int64) error {
	return m.Called(ctx, caller, lineID).Error(0)
}

func (m *MockCartService) Summary(ctx context.Context, caller access.Caller) (*cart.Summary, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Summary), args.Error(1)
}

var buyer = access.Caller{UserID: buyerID}

func TestCartHandler_RequiresAuthentication(t *testing.T) {
	mockService := new(MockCartService)
	router := newRouter(storeHandler.NewCartHandler(mockService))

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/cart"},
		{http.MethodPost, "/cart/products/1"},
		{http.MethodDelete, "/cart/lines/1"},
	} {
		rr := doRequest(t, router, req.method, req.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "%s %s", req.method, req.path)
	}
	mockService.AssertNotCalled(t, "AddToCart", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartHandler_GetCart(t *testing.T) {
	mockService := new(MockCartService)
	router := newRouter(storeHandler.NewCartHandler(mockService))

	lines := []cart.Line{
		{ID: 1, ProductID: 10, ProductName: "Кружка", UnitPrice: decimal.RequireFromString("10"), Quantity: 2, Price: decimal.RequireFromString("20")},
		{ID: 2, ProductID: 11, ProductName: "Ложка", UnitPrice: decimal.RequireFromString("2.5"), Quantity: 6, Price: decimal.RequireFromString("15")},
	}
	mockService.On("Summary", mock.Anything, buyer).Return(cart.NewSummary(lines), nil).Once()

	rr := doRequest(t, router, http.MethodGet, "/cart", "", tokenFor(t, buyerID, false))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp storeHandler.CartResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "35.00", resp.TotalPrice)
	assert.Equal(t, 8, resp.TotalCount)
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, "2.50", resp.Lines[1].UnitPrice)
	mockService.AssertExpectations(t)
}

func TestCartHandler_AddProduct(t *testing.T) {
	tests := []struct {
		name           string
		line           *cart.Line
		serviceErr     error
		expectedStatus int
	}{
		{
			name:           "success",
			line:           &cart.Line{ID: 3, ProductID: 10, Quantity: 1, UnitPrice: decimal.RequireFromString("10"), Price: decimal.RequireFromString("10")},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "unknown_product",
			serviceErr:     cart.ErrProductNotFound,
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockCartService)
			router := newRouter(storeHandler.NewCartHandler(mockService))

			if tt.serviceErr != nil {
				mockService.On("AddToCart", mock.Anything, buyer, int64(10)).Return(nil, tt.serviceErr).Once()
			} else {
				mockService.On("AddToCart", mock.Anything, buyer, int64(10)).Return(tt.line, nil).Once()
			}

			rr := doRequest(t, router, http.MethodPost, "/cart/products/10", "", tokenFor(t, buyerID, false))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestCartHandler_RemoveLine_AlwaysNoContent(t *testing.T) {
	mockService := new(MockCartService)
	router := newRouter(storeHandler.NewCartHandler(mockService))

	mockService.On("RemoveLine", mock.Anything, buyer, int64(404)).Return(nil).Once()

	rr := doRequest(t, router, http.MethodDelete, "/cart/lines/404", "", tokenFor(t, buyerID, false))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	mockService.AssertExpectations(t)
}

func TestCartHandler_RemoveLine_InvalidID(t *testing.T) {
	mockService := new(MockCartService)
	router := newRouter(storeHandler.NewCartHandler(mockService))

	rr := doRequest(t, router, http.MethodDelete, "/cart/lines/abc", "", tokenFor(t, buyerID, false))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid lineID parameter"}`, rr.Body.String())
}
