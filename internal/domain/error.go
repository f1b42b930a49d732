package domain

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrIncorrectCredentials = errors.New("incorrect credentials")
	ErrForbidden            = errors.New("forbidden")
	ErrProductNotFound      = errors.New("product not found")
	ErrStockNotFound        = errors.New("stock item not found")
	ErrStockSold            = errors.New("stock item already sold")
	ErrOutOfStock           = errors.New("product is out of stock")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrOrderNotFound        = errors.New("order not found")
	ErrCredentialsMissing   = errors.New("order has no link credentials")
	ErrStockFileMissing     = errors.New("order has no stock file")
	ErrVoucherRedeemed      = errors.New("voucher already redeemed")
)
