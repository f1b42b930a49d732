package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/axonake/RANGERSTORE/internal/domain"
)

/**
  {
      "number": "171234567890123",
      "product_id": 2,
      "product": "Ranger ID #2",
      "status": "pending",
      "link_method": "google",
      "created_at": "2024-02-10T15:15:45+07:00"
  }
*/

type Order struct {
	Number       string `json:"number"`
	ProductID    int64  `json:"product_id,omitempty"`
	Product      string `json:"product"`
	Status       string `json:"status"`
	LinkMethod   string `json:"link_method,omitempty"`
	Owner        string `json:"owner,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
	CustomerPass string `json:"customer_pass,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type LinkRequest struct {
	Method       string `json:"link_method"`
	CustomerID   string `json:"customer_id"`
	CustomerPass string `json:"customer_pass"`
}

func (l LinkRequest) IsValid() error {
	var methodErr, idErr, passErr error

	if _, ok := domain.ParseLinkMethod(l.Method); !ok {
		methodErr = fmt.Errorf("link_method must be %q or %q", domain.LinkMethodGoogle, domain.LinkMethodLine)
	}
	if strings.TrimSpace(l.CustomerID) == "" {
		idErr = fmt.Errorf("customer_id is required")
	}
	if l.CustomerPass == "" {
		passErr = fmt.Errorf("customer_pass is required")
	}

	return errors.Join(methodErr, idErr, passErr)
}

type StatusRequest struct {
	Status string `json:"status"`
}

type Dashboard struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Products   int `json:"products"`
}
