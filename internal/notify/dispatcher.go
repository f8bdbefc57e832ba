package notify

import (
	"context"
	"sync"
	"time"

	"storefront-backend/internal/metrics"
	"storefront-backend/internal/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// OrderEmail is the data both notifications render from.
type OrderEmail struct {
	OrderID         int
	Items           []models.OrderLineSummary
	Total           float64
	ShippingAddress models.ShippingAddress
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
}

// DispatchResult is the combined outcome of both notification
// attempts. Neither failure is an order failure.
type DispatchResult struct {
	CustomerSent bool
	AdminSent    bool
	CustomerErr  error
	AdminErr     error
}

func (r DispatchResult) AllSent() bool {
	return r.CustomerSent && r.AdminSent
}

// SendOrderEmails issues the customer and admin notifications
// concurrently and waits for both outcomes.
func (m *Mailer) SendOrderEmails(ctx context.Context, data OrderEmail) DispatchResult {
	var (
		result DispatchResult
		wg     sync.WaitGroup
	)

	wg.Add(2)

	go func() {
		defer wg.Done()
		result.CustomerErr = m.sendCustomerEmail(ctx, data)
		result.CustomerSent = result.CustomerErr == nil
	}()

	go func() {
		defer wg.Done()
		result.AdminErr = m.sendAdminEmail(ctx, data)
		result.AdminSent = result.AdminErr == nil
	}()

	wg.Wait()

	metrics.OrderEmailsTotal.WithLabelValues("customer", outcome(result.CustomerSent)).Inc()
	metrics.OrderEmailsTotal.WithLabelValues("admin", outcome(result.AdminSent)).Inc()

	return result
}

func outcome(sent bool) string {
	if sent {
		return "sent"
	}
	return "failed"
}

// Dispatcher runs notification work in the background so the order
// response never waits on email delivery.
type Dispatcher struct {
	mailer *Mailer
	wg     sync.WaitGroup
}

func NewDispatcher(mailer *Mailer) *Dispatcher {
	return &Dispatcher{mailer: mailer}
}

// DispatchAsync fires both order emails on a background goroutine.
// Failures are logged, never returned: the order is already committed
// and stands regardless of notification outcome.
func (d *Dispatcher) DispatchAsync(data OrderEmail) {
	dispatchID := uuid.New().String()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result := d.mailer.SendOrderEmails(ctx, data)

		entry := log.WithFields(log.Fields{
			"dispatch_id":    dispatchID,
			"order_id":       data.OrderID,
			"customer_email": data.CustomerEmail,
			"customer_sent":  result.CustomerSent,
			"admin_sent":     result.AdminSent,
		})

		if result.AllSent() {
			entry.Info("order emails sent")
			return
		}
		if result.CustomerErr != nil {
			entry = entry.WithField("customer_error", result.CustomerErr.Error())
		}
		if result.AdminErr != nil {
			entry = entry.WithField("admin_error", result.AdminErr.Error())
		}
		entry.Warn("order email delivery incomplete")
	}()
}

// Wait blocks until all in-flight dispatches finish. Called on
// shutdown so pending notifications are not dropped mid-send.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
