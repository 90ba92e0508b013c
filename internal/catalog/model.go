package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          int64   `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
}

type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Image       string          `json:"image,omitempty" db:"image"`
	CategoryID  int64           `json:"category_id" db:"category_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

type Supplier struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	City       string    `json:"city" db:"city"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ProductIDs []int64   `json:"product_ids" db:"-"`
}

// ProductFilter - фильтр витрины. Page начинается с 1.
type ProductFilter struct {
	CategoryID *int64
	Page       int
	PageSize   int
}

type ProductPage struct {
	Items    []Product `json:"items"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Total    int       `json:"total"`
}

func (p ProductPage) HasNext() bool {
	return p.Page*p.PageSize < p.Total
}

const (
	maxCategoryNameLen = 50
	maxProductNameLen  = 128
	maxSupplierNameLen = 100
	maxSupplierCityLen = 50
)
