package streamhandler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/axonake/RANGERSTORE/internal/domain"
	"github.com/axonake/RANGERSTORE/internal/handler/order"
	"github.com/axonake/RANGERSTORE/internal/handler/request"
	"github.com/axonake/RANGERSTORE/internal/queue"
	"github.com/axonake/RANGERSTORE/internal/service"
	"github.com/axonake/RANGERSTORE/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type OrderService interface {
	Order(ctx context.Context, number string, by service.Requester) (*domain.Order, error)
}

type JobQueue interface {
	Attach(kind queue.JobKind, orderID int64) (*queue.Subscription, queue.Ticket, error)
}

// StreamHandler starts device jobs for an order and relays their events
// to the browser over a websocket until the job ends.
type StreamHandler struct {
	orders   OrderService
	queue    JobQueue
	upgrader websocket.Upgrader
}

func New(orders OrderService, q JobQueue) *StreamHandler {
	return &StreamHandler{
		orders: orders,
		queue:  q,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *StreamHandler) Link(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, queue.JobLinkID)
}

func (h *StreamHandler) Phase2(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, queue.JobPhase2)
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, kind queue.JobKind) {
	number, ok := request.OrderNumber(w, r)
	if !ok {
		return
	}

	by, err := request.Requester(r)
	if err != nil {
		logger.Log.Error("error while parsing user ID from header", logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	o, err := h.orders.Order(r.Context(), number, by)
	if err != nil {
		orderhandler.WriteError(w, number, err)
		return
	}

	sub, ticket, err := h.queue.Attach(kind, o.ID)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrQueueFull):
			http.Error(w, "device queue is full, try again later", http.StatusServiceUnavailable)
		case errors.Is(err, queue.ErrClosed):
			http.Error(w, "service is shutting down", http.StatusServiceUnavailable)
		default:
			logger.Log.Error("error while queueing job", logger.String("order", number), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("websocket upgrade failed", logger.String("order", number), logger.Error(err))
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Log.Debug("error closing websocket", logger.Error(err))
		}
	}()

	log := logger.Log.With(logger.String("order", number), logger.String("kind", string(kind)))
	log.Info("log stream opened", logger.Bool("queued", ticket.Queued), logger.Int("position", ticket.Position))

	greeting := queue.Event{OrderID: o.ID, Kind: queue.EventStatus, Text: greetingText(kind, ticket), At: time.Now()}
	if err = write(conn, greeting); err != nil {
		return
	}

	gone := watchClient(conn)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				log.Warn("log stream dropped, client too slow")
				closeWith(conn, websocket.CloseTryAgainLater, "stream dropped, reconnect to resume")
				return
			}
			if err = write(conn, ev); err != nil {
				log.Debug("error writing event", logger.Error(err))
				return
			}
			if ev.Terminal() {
				log.Info("log stream finished", logger.String("event", string(ev.Kind)))
				closeWith(conn, websocket.CloseNormalClosure, string(ev.Kind))
				return
			}
		case <-ping.C:
			if err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			log.Info("log stream closed by client")
			return
		case <-r.Context().Done():
			return
		}
	}
}

func greetingText(kind queue.JobKind, t queue.Ticket) string {
	switch {
	case !t.Queued:
		return "joined running job"
	case t.Position <= 1:
		return "starting..."
	case kind == queue.JobPhase2:
		return fmt.Sprintf("phase 2 queued (position %d)", t.Position)
	default:
		return fmt.Sprintf("queued (position %d)", t.Position)
	}
}

func write(conn *websocket.Conn, ev queue.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

func closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		logger.Log.Debug("error writing close message", logger.Error(err))
	}
}

// watchClient drains incoming frames so control messages are handled, and
// closes the returned channel once the client goes away.
func watchClient(conn *websocket.Conn) <-chan struct{} {
	gone := make(chan struct{})

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return gone
}
