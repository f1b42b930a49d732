package dto

import "github.com/shopspring/decimal"

/**
  {
      "id": 2,
      "name": "Ranger ID #2",
      "description": "...",
      "price": "150",
      "image": "/images/20240210151545_ab12cd34_cover.png",
      "stock": 3,
      "sold_out": false
  }
*/

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Stock       int             `json:"stock"`
	SoldOut     bool            `json:"sold_out"`
	CreatedAt   string          `json:"created_at"`
}

type Stock struct {
	ID        int64  `json:"id"`
	Sold      bool   `json:"sold"`
	OrderID   *int64 `json:"order_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

type Created struct {
	ID int64 `json:"id"`
}
