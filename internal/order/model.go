package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/store-market/internal/cart"
)

type Status int

const (
	StatusAccepted Status = iota
	StatusPaid
	StatusTransit
	StatusDelivered
)

var statusLabels = map[Status]string{
	StatusAccepted:  "Принят",
	StatusPaid:      "Оплачен",
	StatusTransit:   "В пути",
	StatusDelivered: "Доставлен",
}

var statusNames = map[Status]string{
	StatusAccepted:  "accepted",
	StatusPaid:      "paid",
	StatusTransit:   "transit",
	StatusDelivered: "delivered",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label - подпись статуса для покупателя.
func (s Status) Label() string {
	return statusLabels[s]
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

type Recipient struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=50"`
	Address   string `json:"address" validate:"required,max=500"`
}

// Order - неизменяемый снимок корзины на момент оформления.
type Order struct {
	ID        int64
	Recipient Recipient
	CreatedAt time.Time
	UserID    *int64
	Status    Status
	Items     []cart.SnapshotItem
	// ToPay - сумма к оплате в целых единицах цены, дробная часть отбрасывается.
	ToPay int64
	// ToPayMinor - та же сумма в копейках, без потерь.
	ToPayMinor int64
}

// ToPayAmount возвращает точную сумму к оплате с двумя знаками.
func (o *Order) ToPayAmount() decimal.Decimal {
	return decimal.New(o.ToPayMinor, -2)
}

func toWholeUnits(amount decimal.Decimal) int64 {
	return amount.Truncate(0).IntPart()
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
