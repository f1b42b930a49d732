package service

import (
	"context"

	"github.com/axonake/RANGERSTORE/internal/device"
	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/voucher"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type userRepoMock struct{ mock.Mock }

func (m *userRepoMock) CreateUser(ctx context.Context, login, hashedPassword, role string) (int64, error) {
	args := m.Called(ctx, login, hashedPassword, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *userRepoMock) EnsureUser(ctx context.Context, login, hashedPassword, role string, balance decimal.Decimal) (bool, error) {
	args := m.Called(ctx, login, hashedPassword, role, balance)
	return args.Bool(0), args.Error(1)
}

func (m *userRepoMock) User(ctx context.Context, login string) (*domain.User, error) {
	args := m.Called(ctx, login)
	user, _ := args.Get(0).(*domain.User)
	return user, args.Error(1)
}

type orderRepoMock struct{ mock.Mock }

func (m *orderRepoMock) Purchase(ctx context.Context, userID, productID int64, number string) (*domain.Order, error) {
	args := m.Called(ctx, userID, productID, number)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *orderRepoMock) Orders(ctx context.Context, userID int64) ([]domain.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *orderRepoMock) OrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	args := m.Called(ctx, status)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *orderRepoMock) AllOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *orderRepoMock) OrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	args := m.Called(ctx, number)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *orderRepoMock) OrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *orderRepoMock) SetLinkCredentials(ctx context.Context, orderID int64, method domain.LinkMethod, customerID, customerPass string) error {
	return m.Called(ctx, orderID, method, customerID, customerPass).Error(0)
}

func (m *orderRepoMock) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	return m.Called(ctx, orderID, status).Error(0)
}

func (m *orderRepoMock) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	args := m.Called(ctx)
	d, _ := args.Get(0).(*domain.Dashboard)
	return d, args.Error(1)
}

type balanceRepoMock struct{ mock.Mock }

func (m *balanceRepoMock) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *balanceRepoMock) TopUpExists(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

func (m *balanceRepoMock) CreditTopUp(ctx context.Context, topUp domain.TopUp) (int64, error) {
	args := m.Called(ctx, topUp)
	return args.Get(0).(int64), args.Error(1)
}

func (m *balanceRepoMock) TopUps(ctx context.Context, userID int64) ([]domain.TopUp, error) {
	args := m.Called(ctx, userID)
	topUps, _ := args.Get(0).([]domain.TopUp)
	return topUps, args.Error(1)
}

type redeemerMock struct{ mock.Mock }

func (m *redeemerMock) Redeem(ctx context.Context, link string) (*voucher.Redemption, error) {
	args := m.Called(ctx, link)
	r, _ := args.Get(0).(*voucher.Redemption)
	return r, args.Error(1)
}

type linkerMock struct{ mock.Mock }

func (m *linkerMock) Link(ctx context.Context, req device.LinkRequest, progress func(string)) (device.Result, error) {
	args := m.Called(ctx, req, progress)
	if fn, ok := args.Get(0).(func(func(string)) device.Result); ok {
		return fn(progress), args.Error(1)
	}
	return args.Get(0).(device.Result), args.Error(1)
}

func (m *linkerMock) Phase2(ctx context.Context, progress func(string)) (device.Result, error) {
	args := m.Called(ctx, progress)
	return args.Get(0).(device.Result), args.Error(1)
}
