package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/store-market/internal/apperr"
)

var (
	ErrCategoryNotFound = fmt.Errorf("category %w", apperr.ErrNotFound)
	ErrCategoryExists   = fmt.Errorf("category with this name already exists: %w", apperr.ErrConflict)
	ErrCategoryInUse    = fmt.Errorf("category still has products: %w", apperr.ErrConflict)
	ErrProductNotFound  = fmt.Errorf("product %w", apperr.ErrNotFound)
	ErrSupplierNotFound = fmt.Errorf("supplier %w", apperr.ErrNotFound)
)

type Repository interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id int64) (*Category, error)
	CreateCategory(ctx context.Context, category *Category) error
	DeleteCategory(ctx context.Context, id int64) error

	ListProducts(ctx context.Context, categoryID *int64, limit, offset int) ([]Product, error)
	CountProducts(ctx context.Context, categoryID *int64) (int, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error
	DeleteProduct(ctx context.Context, id int64) error

	ListSuppliers(ctx context.Context) ([]Supplier, error)
	CreateSupplier(ctx context.Context, supplier *Supplier) error
	DeleteSupplier(ctx context.Context, id int64) error
	LinkSupplierProduct(ctx context.Context, supplierID, productID int64) error
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository принимает *sql.DB поверх пула pgx (stdlib.OpenDBFromPool).
func NewRepository(db *sql.DB) Repository {
	return &postgresRepository{db: sqlx.NewDb(db, "pgx")}
}

func pgErrorCode(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	categories := make([]Category, 0)
	err := r.db.SelectContext(ctx, &categories, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *postgresRepository) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var category Category
	err := r.db.GetContext(ctx, &category, `SELECT id, name, description FROM categories WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to get category %d: %w", id, err)
	}
	return &category, nil
}

func (r *postgresRepository) CreateCategory(ctx context.Context, category *Category) error {
	query := `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`

	err := r.db.QueryRowxContext(ctx, query, category.Name, category.Description).Scan(&category.ID)
	if err != nil {
		if pgErr, ok := pgErrorCode(err); ok && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrCategoryExists
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if pgErr, ok := pgErrorCode(err); ok && pgErr.Code == pgerrcode.ForeignKeyViolation {
			log.Warn().Int64("category_id", id).Msg("repository: category is protected by products")
			return ErrCategoryInUse
		}
		return fmt.Errorf("repository: failed to delete category %d: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

const productColumns = `id, name, description, price, quantity, image, category_id, created_at`

// ListProducts возвращает товары по имени. limit <= 0 означает без ограничения.
func (r *postgresRepository) ListProducts(ctx context.Context, categoryID *int64, limit, offset int) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE ($1::bigint IS NULL OR category_id = $1) ORDER BY name, id`
	args := []any{categoryID}
	if limit > 0 {
		query += ` LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	products := make([]Product, 0)
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("repository: failed to list products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) CountProducts(ctx context.Context, categoryID *int64) (int, error) {
	var total int
	err := r.db.GetContext(ctx, &total, `SELECT count(*) FROM products WHERE ($1::bigint IS NULL OR category_id = $1)`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count products: %w", err)
	}
	return total, nil
}

func (r *postgresRepository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var product Product
	err := r.db.GetContext(ctx, &product, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to get product %d: %w", id, err)
	}
	return &product, nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, product *Product) error {
	query := `
		INSERT INTO products (name, description, price, quantity, image, category_id)
		VALUES (:name, :description, :price, :quantity, :image, :category_id)
		RETURNING id, created_at
	`

	rows, err := r.db.NamedQueryContext(ctx, query, product)
	if err != nil {
		if pgErr, ok := pgErrorCode(err); ok && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&product.ID, &product.CreatedAt); err != nil {
			return fmt.Errorf("repository: failed to scan inserted product: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		if pgErr, ok := pgErrorCode(err); ok && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateProductPrice(ctx context.Context, id int64, price decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET price = $1 WHERE id = $2`, price, id)
	if err != nil {
		return fmt.Errorf("repository: failed to update price of product %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

type supplierProduct struct {
	SupplierID int64 `db:"supplier_id"`
	ProductID  int64 `db:"product_id"`
}

func (r *postgresRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	suppliers := make([]Supplier, 0)
	if err := r.db.SelectContext(ctx, &suppliers, `SELECT id, name, city, created_at FROM suppliers ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("repository: failed to list suppliers: %w", err)
	}
	if len(suppliers) == 0 {
		return suppliers, nil
	}

	ids := make([]int64, 0, len(suppliers))
	byID := make(map[int64]*Supplier, len(suppliers))
	for i := range suppliers {
		suppliers[i].ProductIDs = make([]int64, 0)
		ids = append(ids, suppliers[i].ID)
		byID[suppliers[i].ID] = &suppliers[i]
	}

	query, args, err := sqlx.In(`SELECT supplier_id, product_id FROM supplier_products WHERE supplier_id IN (?) ORDER BY product_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to build supplier products query: %w", err)
	}

	var links []supplierProduct
	if err := r.db.SelectContext(ctx, &links, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("repository: failed to list supplier products: %w", err)
	}
	for _, link := range links {
		if s, ok := byID[link.SupplierID]; ok {
			s.ProductIDs = append(s.ProductIDs, link.ProductID)
		}
	}

	return suppliers, nil
}

func (r *postgresRepository) CreateSupplier(ctx context.Context, supplier *Supplier) error {
	query := `INSERT INTO suppliers (name, city) VALUES ($1, $2) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, supplier.Name, supplier.City).Scan(&supplier.ID, &supplier.CreatedAt); err != nil {
		return fmt.Errorf("repository: failed to insert supplier: %w", err)
	}
	if supplier.ProductIDs == nil {
		supplier.ProductIDs = make([]int64, 0)
	}
	return nil
}

func (r *postgresRepository) DeleteSupplier(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete supplier %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *postgresRepository) LinkSupplierProduct(ctx context.Context, supplierID, productID int64) error {
	query := `
		INSERT INTO supplier_products (supplier_id, product_id)
		VALUES ($1, $2)
		ON CONFLICT (supplier_id, product_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, supplierID, productID); err != nil {
		if pgErr, ok := pgErrorCode(err); ok && pgErr.Code == pgerrcode.ForeignKeyViolation {
			if pgErr.ConstraintName == "supplier_products_product_id_fkey" {
				return ErrProductNotFound
			}
			return ErrSupplierNotFound
		}
		return fmt.Errorf("repository: failed to link supplier %d with product %d: %w", supplierID, productID, err)
	}
	return nil
}
