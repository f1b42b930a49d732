package service

import (
	"context"

	"github.com/axonake/RANGERSTORE/internal/device"
	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/queue"
	"github.com/axonake/RANGERSTORE/pkg/logger"
)

type LinkRepository interface {
	OrderByID(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
}

type Linker interface {
	Link(ctx context.Context, req device.LinkRequest, progress func(string)) (device.Result, error)
	Phase2(ctx context.Context, progress func(string)) (device.Result, error)
}

// LinkService runs the device jobs taken off the queue.
type LinkService struct {
	repo   LinkRepository
	linker Linker
}

func NewLinkService(repo LinkRepository, linker Linker) *LinkService {
	return &LinkService{
		repo:   repo,
		linker: linker,
	}
}

func (s *LinkService) Register(q *queue.Queue) {
	q.Handle(queue.JobLinkID, queue.HandlerFunc(s.LinkID))
	q.Handle(queue.JobPhase2, queue.HandlerFunc(s.Phase2))
}

// LinkID installs the order's credential file and, when the buyer left
// login details, signs the game into their account. The order moves to
// processing once the device part succeeds.
func (s *LinkService) LinkID(ctx context.Context, job queue.Job, progress func(string)) (queue.Result, error) {
	order, err := s.repo.OrderByID(ctx, job.OrderID)
	if err != nil {
		return queue.Result{}, err
	}
	if order.StockFile == "" {
		return queue.Result{}, domain.ErrStockFileMissing
	}

	res, err := s.linker.Link(ctx, device.LinkRequest{
		SourceFile:   order.StockFile,
		Method:       string(order.LinkMethod),
		CustomerID:   order.CustomerID,
		CustomerPass: order.CustomerPass,
	}, progress)
	if err != nil {
		logger.Log.Warn("link job failed", logger.String("order", order.Number), logger.Error(err))
		return queue.Result{}, err
	}

	if err = s.repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusProcessing); err != nil {
		return queue.Result{}, err
	}

	logger.Log.Info("link job finished",
		logger.String("order", order.Number),
		logger.String("result", res.Message),
		logger.Bool("verification_code", res.VerificationCode != ""),
	)

	return queue.Result{Message: res.Message, VerificationCode: res.VerificationCode}, nil
}

func (s *LinkService) Phase2(ctx context.Context, job queue.Job, progress func(string)) (queue.Result, error) {
	if _, err := s.repo.OrderByID(ctx, job.OrderID); err != nil {
		return queue.Result{}, err
	}

	res, err := s.linker.Phase2(ctx, progress)
	if err != nil {
		logger.Log.Warn("phase 2 job failed", logger.Int64("order_id", job.OrderID), logger.Error(err))
		return queue.Result{}, err
	}

	return queue.Result{Message: res.Message}, nil
}
