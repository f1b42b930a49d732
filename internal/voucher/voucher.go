// Package voucher redeems TrueMoney gift vouchers through the redemption
// proxy.
package voucher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	codeLength = 35
	maxBody    = 1 << 20
)

var (
	ErrInvalidPhone = errors.New("invalid merchant phone number")
	ErrInvalidLink  = errors.New("invalid voucher link")
)

// Error is a rejection reported by the proxy, e.g. an expired voucher.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

type Redemption struct {
	Code      string
	Amount    decimal.Decimal
	OwnerName string
}

type Client struct {
	url   string
	phone string
	http  *http.Client
}

func New(url, merchantPhone string, timeout time.Duration) *Client {
	return &Client{
		url:   url,
		phone: strings.TrimSpace(merchantPhone),
		http:  &http.Client{Timeout: timeout},
	}
}

var codeRe = regexp.MustCompile(`[0-9A-Za-z]+`)

// ExtractCode pulls the voucher code out of a gift link or a bare code.
func ExtractCode(link string) (string, error) {
	link = strings.TrimSpace(link)

	part := link
	if _, after, ok := strings.Cut(link, "v="); ok {
		part = after
	}

	code := codeRe.FindString(part)
	if code == "" {
		return "", ErrInvalidLink
	}
	if len(code) != codeLength {
		return "", fmt.Errorf("%w: code length %d/%d", ErrInvalidLink, len(code), codeLength)
	}

	return code, nil
}

func validPhone(phone string) bool {
	if phone == "" {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type redeemRequest struct {
	Mobile  string `json:"mobile"`
	Voucher string `json:"voucher"`
}

type redeemResponse struct {
	Status struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Data struct {
		MyTicket struct {
			AmountBaht json.RawMessage `json:"amount_baht"`
		} `json:"my_ticket"`
		OwnerProfile struct {
			FullName string `json:"full_name"`
		} `json:"owner_profile"`
	} `json:"data"`
}

func (c *Client) Redeem(ctx context.Context, link string) (*Redemption, error) {
	if !validPhone(c.phone) {
		return nil, ErrInvalidPhone
	}

	code, err := ExtractCode(link)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(redeemRequest{Mobile: c.phone, Voucher: code})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error building voucher request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "rangerstore")

	response, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			logger.Log.Error("error while closing response body", logger.Error(err))
		}
	}(response.Body)

	raw, err := io.ReadAll(io.LimitReader(response.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("error reading voucher response: %w", err)
	}

	var res redeemResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		snippet := string(raw)
		if len(snippet) > 100 {
			snippet = snippet[:100]
		}
		logger.Log.Warn("unexpected voucher proxy response", logger.Int("status", response.StatusCode), logger.String("body", snippet))
		return nil, fmt.Errorf("api error (%d): %s", response.StatusCode, snippet)
	}

	if res.Status.Code != "SUCCESS" {
		code := res.Status.Code
		if code == "" {
			code = "UNKNOWN_ERROR"
		}
		return nil, &Error{Code: code, Message: res.Status.Message}
	}

	amount, err := parseAmount(res.Data.MyTicket.AmountBaht)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		logger.Log.Warn("voucher redeemed without amount", logger.String("amount", amount.String()))
		return nil, &Error{Code: "INVALID_AMOUNT", Message: "voucher amount must be positive"}
	}

	owner := res.Data.OwnerProfile.FullName
	if owner == "" {
		owner = "Unknown"
	}

	return &Redemption{Code: code, Amount: amount, OwnerName: owner}, nil
}

// parseAmount accepts both "1,234.50" and 1234.5.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "null" {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid voucher amount %q: %w", s, err)
	}
	return amount, nil
}
