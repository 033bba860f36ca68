// Package notify delivers the marketplace emails off the request path.
// Delivery is best effort: a full queue drops the message, a failed send is
// logged, nothing is retried and nothing propagates back to the caller.
package notify

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Skotchmaster/farmmarket/internal/models"
)

type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderNotification Kind = "order_notification"
	KindOrderStatusUpdate Kind = "order_status_update"
	KindFarmerApproval    Kind = "farmer_approval"
	KindWelcome           Kind = "welcome"
)

type Message struct {
	Kind    Kind
	To      string
	Subject string
	Body    string
}

// Sender performs one delivery attempt.
type Sender interface {
	Send(m Message) error
}

// LogSender is the Sender used when SMTP is not configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(m Message) error {
	s.Logger.Info("mail delivery skipped, smtp not configured",
		"kind", string(m.Kind), "to", m.To, "subject", m.Subject)
	return nil
}

// Dispatcher fans messages out to a fixed worker pool over a buffered
// channel. Dispatch never blocks the request handler.
type Dispatcher struct {
	sender    Sender
	logger    *slog.Logger
	queue     chan Message
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewDispatcher(sender Sender, logger *slog.Logger, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		sender: sender,
		logger: logger,
		queue:  make(chan Message, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for m := range d.queue {
		if err := d.sender.Send(m); err != nil {
			d.logger.Error("mail delivery failed",
				"kind", string(m.Kind), "to", m.To, "error", err)
			continue
		}
		d.logger.Info("mail delivered", "kind", string(m.Kind), "to", m.To)
	}
}

// Dispatch enqueues a message, dropping it when the queue is full.
func (d *Dispatcher) Dispatch(m Message) {
	select {
	case d.queue <- m:
	default:
		d.logger.Warn("mail queue full, message dropped",
			"kind", string(m.Kind), "to", m.To)
	}
}

// Close drains the queue and stops the workers. Safe to call twice.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
		d.wg.Wait()
	})
}

func (d *Dispatcher) OrderConfirmation(order *models.Order, buyer *models.User) {
	d.Dispatch(Message{
		Kind:    KindOrderConfirmation,
		To:      buyer.Email,
		Subject: fmt.Sprintf("Order Confirmation - Order #%d", order.ID),
		Body: fmt.Sprintf(
			"Hi %s,\n\nwe received your order #%d for a total of %.2f. The farmer will confirm it shortly.\n",
			buyer.Username, order.ID, order.TotalPrice),
	})
}

func (d *Dispatcher) OrderNotification(order *models.Order, farmer *models.User) {
	d.Dispatch(Message{
		Kind:    KindOrderNotification,
		To:      farmer.Email,
		Subject: fmt.Sprintf("New Order Received - Order #%d", order.ID),
		Body: fmt.Sprintf(
			"Hi %s,\n\nyou received order #%d with %d items for a total of %.2f.\n",
			farmer.Username, order.ID, len(order.Items), order.TotalPrice),
	})
}

func (d *Dispatcher) OrderStatusUpdate(order *models.Order, buyer *models.User) {
	d.Dispatch(Message{
		Kind:    KindOrderStatusUpdate,
		To:      buyer.Email,
		Subject: fmt.Sprintf("Order Status Update - Order #%d", order.ID),
		Body: fmt.Sprintf(
			"Hi %s,\n\nyour order #%d is now %q.\n",
			buyer.Username, order.ID, order.Status),
	})
}

func (d *Dispatcher) FarmerApproval(user *models.User) {
	d.Dispatch(Message{
		Kind:    KindFarmerApproval,
		To:      user.Email,
		Subject: "Your Farmer Account Has Been Approved!",
		Body: fmt.Sprintf(
			"Hi %s,\n\nyour farmer account has been approved, you can start listing products now.\n",
			user.Username),
	})
}

func (d *Dispatcher) Welcome(user *models.User) {
	d.Dispatch(Message{
		Kind:    KindWelcome,
		To:      user.Email,
		Subject: "Welcome to the Farm Market!",
		Body: fmt.Sprintf(
			"Hi %s,\n\nwelcome aboard! Browse the catalog and support your local farmers.\n",
			user.Username),
	})
}
