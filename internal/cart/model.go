package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line - строка корзины вместе с текущими данными товара.
type Line struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	// Price пересчитывается при каждой записи строки и нужен только для отображения.
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// SnapshotItem - копия строки корзины, которая сохраняется в заказе.
// Цены здесь float64: это граница сериализации, точность decimal теряется сознательно.
type SnapshotItem struct {
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	ProductPrice float64 `json:"product_price"`
	ProductName  string  `json:"product_name"`
}

type Summary struct {
	Lines      []Line          `json:"lines"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalCount int             `json:"total_count"`
}

// TotalPrice считает сумму по текущим ценам товаров, а не по сохранённому Price строки.
func TotalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}

func TotalCount(lines []Line) int {
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count
}

func Serialize(lines []Line) []SnapshotItem {
	items := make([]SnapshotItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, SnapshotItem{
			Quantity:     line.Quantity,
			Price:        line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).InexactFloat64(),
			ProductPrice: line.UnitPrice.InexactFloat64(),
			ProductName:  line.ProductName,
		})
	}
	return items
}

func NewSummary(lines []Line) *Summary {
	return &Summary{
		Lines:      lines,
		TotalPrice: TotalPrice(lines),
		TotalCount: TotalCount(lines),
	}
}
