package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
)

var (
	ErrNoProducts   = fmt.Errorf("products for category %w", apperr.ErrNotFound)
	ErrPageNotFound = fmt.Errorf("page %w", apperr.ErrNotFound)
)

type Service interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, category *Category) (*Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	BrowseProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error)
	ListProducts(ctx context.Context, categoryID *int64) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error
	DeleteProduct(ctx context.Context, id int64) error

	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, supplier *Supplier) (*Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
	LinkSupplierProduct(ctx context.Context, supplierID, productID int64) error
}

type service struct {
	repo     Repository
	pageSize int
}

func NewService(repo Repository, pageSize int) Service {
	if pageSize <= 0 {
		pageSize = 3
	}
	return &service{repo: repo, pageSize: pageSize}
}

func (s *service) ListCategories(ctx context.Context) ([]Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list categories")
		return nil, fmt.Errorf("service: list categories: %w", err)
	}
	return categories, nil
}

func (s *service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Int64("category_id", id).Msg("service: failed to get category")
		return nil, fmt.Errorf("service: get category %d: %w", id, err)
	}
	return category, nil
}

func (s *service) CreateCategory(ctx context.Context, category *Category) (*Category, error) {
	category.Name = strings.TrimSpace(category.Name)

	fields := map[string]string{}
	switch {
	case category.Name == "":
		fields["name"] = "is required"
	case utf8.RuneCountInString(category.Name) > maxCategoryNameLen:
		fields["name"] = fmt.Sprintf("must be at most %d characters long", maxCategoryNameLen)
	}
	if len(fields) > 0 {
		return nil, apperr.NewValidationError(fields)
	}

	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return nil, ErrCategoryExists
		}
		log.Error().Err(err).Str("name", category.Name).Msg("service: failed to create category")
		return nil, fmt.Errorf("service: create category: %w", err)
	}
	return category, nil
}

func (s *service) DeleteCategory(ctx context.Context, id int64) error {
	err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryInUse) {
			return err
		}
		log.Error().Err(err).Int64("category_id", id).Msg("service: failed to delete category")
		return fmt.Errorf("service: delete category %d: %w", id, err)
	}
	return nil
}

// BrowseProducts отдаёт страницу витрины. Пустая категория и страница за пределами списка дают NotFound.
func (s *service) BrowseProducts(ctx context.Context, filter ProductFilter) (*ProductPage, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = s.pageSize
	}

	total, err := s.repo.CountProducts(ctx, filter.CategoryID)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to count products")
		return nil, fmt.Errorf("service: browse products: %w", err)
	}

	if filter.CategoryID != nil && total == 0 {
		return nil, ErrNoProducts
	}

	offset := (filter.Page - 1) * filter.PageSize
	if filter.Page > 1 && offset >= total {
		return nil, ErrPageNotFound
	}

	products, err := s.repo.ListProducts(ctx, filter.CategoryID, filter.PageSize, offset)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products page")
		return nil, fmt.Errorf("service: browse products: %w", err)
	}

	return &ProductPage{
		Items:    products,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Total:    total,
	}, nil
}

func (s *service) ListProducts(ctx context.Context, categoryID *int64) ([]Product, error) {
	products, err := s.repo.ListProducts(ctx, categoryID, 0, 0)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list products")
		return nil, fmt.Errorf("service: list products: %w", err)
	}
	return products, nil
}

func (s *service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to get product")
		return nil, fmt.Errorf("service: get product %d: %w", id, err)
	}
	return product, nil
}

func validatePrice(price decimal.Decimal, fields map[string]string) {
	switch {
	case price.IsNegative():
		fields["price"] = "must not be negative"
	case !price.Equal(price.Round(2)):
		fields["price"] = "must have at most 2 decimal places"
	case price.GreaterThanOrEqual(decimal.NewFromInt(1_000_000)):
		fields["price"] = "must be less than 1000000"
	}
}

func (s *service) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	product.Name = strings.TrimSpace(product.Name)

	fields := map[string]string{}
	switch {
	case product.Name == "":
		fields["name"] = "is required"
	case utf8.RuneCountInString(product.Name) > maxProductNameLen:
		fields["name"] = fmt.Sprintf("must be at most %d characters long", maxProductNameLen)
	}
	validatePrice(product.Price, fields)
	if product.Quantity < 0 {
		fields["quantity"] = "must not be negative"
	}
	if product.CategoryID <= 0 {
		fields["category_id"] = "is required"
	}
	if len(fields) > 0 {
		return nil, apperr.NewValidationError(fields)
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Str("name", product.Name).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: create product: %w", err)
	}
	return product, nil
}

func (s *service) UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	fields := map[string]string{}
	validatePrice(price, fields)
	if len(fields) > 0 {
		return apperr.NewValidationError(fields)
	}

	if err := s.repo.UpdateProductPrice(ctx, id, price); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to update product price")
		return fmt.Errorf("service: update price of product %d: %w", id, err)
	}
	return nil
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Int64("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: delete product %d: %w", id, err)
	}
	return nil
}

func (s *service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list suppliers")
		return nil, fmt.Errorf("service: list suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *service) CreateSupplier(ctx context.Context, supplier *Supplier) (*Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	supplier.City = strings.TrimSpace(supplier.City)

	fields := map[string]string{}
	switch {
	case supplier.Name == "":
		fields["name"] = "is required"
	case utf8.RuneCountInString(supplier.Name) > maxSupplierNameLen:
		fields["name"] = fmt.Sprintf("must be at most %d characters long", maxSupplierNameLen)
	}
	switch {
	case supplier.City == "":
		fields["city"] = "is required"
	case utf8.RuneCountInString(supplier.City) > maxSupplierCityLen:
		fields["city"] = fmt.Sprintf("must be at most %d characters long", maxSupplierCityLen)
	}
	if len(fields) > 0 {
		return nil, apperr.NewValidationError(fields)
	}

	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		log.Error().Err(err).Str("name", supplier.Name).Msg("service: failed to create supplier")
		return nil, fmt.Errorf("service: create supplier: %w", err)
	}
	return supplier, nil
}

func (s *service) DeleteSupplier(ctx context.Context, id int64) error {
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		if errors.Is(err, ErrSupplierNotFound) {
			return ErrSupplierNotFound
		}
		log.Error().Err(err).Int64("supplier_id", id).Msg("service: failed to delete supplier")
		return fmt.Errorf("service: delete supplier %d: %w", id, err)
	}
	return nil
}

func (s *service) LinkSupplierProduct(ctx context.Context, supplierID, productID int64) error {
	if err := s.repo.LinkSupplierProduct(ctx, supplierID, productID); err != nil {
		if errors.Is(err, ErrSupplierNotFound) || errors.Is(err, ErrProductNotFound) {
			return err
		}
		log.Error().Err(err).Int64("supplier_id", supplierID).Int64("product_id", productID).Msg("service: failed to link supplier product")
		return fmt.Errorf("service: link supplier %d with product %d: %w", supplierID, productID, err)
	}
	return nil
}
