package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-backend/internal/metrics"
	"storefront-backend/internal/models"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Config holds the EmailJS-style delivery settings: one REST endpoint
// that takes a template id plus flat key/value params.
type Config struct {
	BaseURL          string
	ServiceID        string
	PublicKey        string
	PrivateKey       string
	TemplateCustomer string
	TemplateAdmin    string
	AdminEmail       string
}

type Mailer struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	cfg     Config
}

func NewMailer(cfg Config) *Mailer {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(0)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mailer",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			state := float64(0)
			switch to {
			case gobreaker.StateOpen:
				state = 1
			case gobreaker.StateHalfOpen:
				state = 2
			}
			metrics.MailerCircuitState.Set(state)

			log.WithFields(log.Fields{
				"circuit": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("mailer circuit breaker state changed")
		},
	})

	return &Mailer{
		client:  client,
		breaker: breaker,
		cfg:     cfg,
	}
}

func (m *Mailer) sendCustomerEmail(ctx context.Context, data OrderEmail) error {
	params := map[string]any{
		"to_email":         data.CustomerEmail,
		"order_id":         data.OrderID,
		"items_html":       formatItemsHTML(data.Items),
		"total":            formatAmount(data.Total),
		"shipping_address": formatAddress(data.ShippingAddress),
		"client_name":      data.CustomerName,
	}

	return m.send(ctx, m.cfg.TemplateCustomer, params)
}

// The admin email renders the same order but adds the customer's
// contact details.
func (m *Mailer) sendAdminEmail(ctx context.Context, data OrderEmail) error {
	phone := data.CustomerPhone
	if phone == "" {
		phone = "not provided"
	}

	params := map[string]any{
		"to_email":         m.cfg.AdminEmail,
		"order_id":         data.OrderID,
		"items_html":       formatItemsHTML(data.Items),
		"total":            formatAmount(data.Total),
		"shipping_address": formatAddress(data.ShippingAddress),
		"client_name":      data.CustomerName,
		"client_email":     data.CustomerEmail,
		"client_phone":     phone,
	}

	return m.send(ctx, m.cfg.TemplateAdmin, params)
}

func (m *Mailer) send(ctx context.Context, templateID string, params map[string]any) error {
	_, err := m.breaker.Execute(func() (interface{}, error) {
		resp, err := m.client.R().
			SetContext(ctx).
			SetBody(map[string]any{
				"service_id":      m.cfg.ServiceID,
				"template_id":     templateID,
				"user_id":         m.cfg.PublicKey,
				"accessToken":     m.cfg.PrivateKey,
				"template_params": params,
			}).
			Post("/api/v1.0/email/send")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("email delivery failed: %s", resp.Status())
		}
		return nil, nil
	})
	if err == gobreaker.ErrOpenState {
		return fmt.Errorf("mailer circuit breaker is open: %w", err)
	}
	return err
}

func formatAmount(total float64) string {
	return fmt.Sprintf("%.2f", total)
}

func formatItemsHTML(items []models.OrderLineSummary) string {
	var b strings.Builder

	for _, item := range items {
		fmt.Fprintf(&b, `<div style="display: flex; justify-content: space-between; padding: 10px 0; border-bottom: 1px solid #e2e8f0;">
  <div>
    <strong>%s</strong><br>
    <span style="font-size: 12px; color: #64748b;">Quantity: %d</span>
  </div>
  <div style="font-weight: 600; color: #334155;">$%s</div>
</div>
`, item.Title, item.Quantity, formatAmount(item.Price))
	}

	return b.String()
}

func formatAddress(addr models.ShippingAddress) string {
	if addr.Address == "" {
		return "Pickup in store"
	}

	s := fmt.Sprintf("%s, %s (%s) - ZIP: %s", addr.Address, addr.City, addr.Province, addr.Zip)
	if addr.Reference != "" {
		s += fmt.Sprintf("<br>Ref: %s", addr.Reference)
	}
	return s
}
