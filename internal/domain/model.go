package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           int64
	Login        string
	Password     string
	Role         string
	Balance      decimal.Decimal
	RegisteredAt time.Time
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	ImagePath   string
	StockCount  int
	CreatedAt   time.Time
}

func (p Product) SoldOut() bool {
	return p.StockCount == 0
}

// Stock is a single credential file. It is sold to exactly one order.
type Stock struct {
	ID        int64
	ProductID int64
	File      string
	Sold      bool
	OrderID   *int64
	CreatedAt time.Time
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDone       OrderStatus = "done"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusDone:
		return OrderStatus(s), true
	default:
		return "", false
	}
}

type LinkMethod string

const (
	LinkMethodGoogle LinkMethod = "google"
	LinkMethodLine   LinkMethod = "line"
)

func ParseLinkMethod(s string) (LinkMethod, bool) {
	switch LinkMethod(s) {
	case LinkMethodGoogle, LinkMethodLine:
		return LinkMethod(s), true
	default:
		return "", false
	}
}

type Order struct {
	ID           int64
	Number       string
	UserID       int64
	UserLogin    string
	ProductID    int64
	ProductName  string
	LinkMethod   LinkMethod
	CustomerID   string
	CustomerPass string
	Status       OrderStatus
	StockFile    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (o Order) HasCredentials() bool {
	return o.LinkMethod != "" && o.CustomerID != "" && o.CustomerPass != ""
}

type TopUp struct {
	ID            int64
	UserID        int64
	Amount        decimal.Decimal
	Method        string
	ReferenceCode string
	OwnerName     string
	Status        string
	CreatedAt     time.Time
}

type Dashboard struct {
	Pending    int
	Processing int
	Done       int
	Products   int
}
