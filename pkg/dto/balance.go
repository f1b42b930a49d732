package dto

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

/**
  {
      "current": "350.50"
  }
*/

type Balance struct {
	Current decimal.Decimal `json:"current"`
}

/**
  {
      "link": "https://gift.truemoney.com/campaign/?v=..."
  }
*/

type TopUpRequest struct {
	Link string `json:"link"`
}

func (t TopUpRequest) IsValid() error {
	if strings.TrimSpace(t.Link) == "" {
		return errors.New("voucher link is required")
	}
	return nil
}

type TopUp struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
	OwnerName   string          `json:"owner_name"`
	Status      string          `json:"status"`
	ProcessedAt string          `json:"processed_at"`
}
