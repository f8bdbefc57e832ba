package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"storefront-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sentEmail struct {
	TemplateID string         `json:"template_id"`
	ServiceID  string         `json:"service_id"`
	Params     map[string]any `json:"template_params"`
}

// fakeEmailAPI records every delivery request and fails the template
// ids listed in failTemplates.
type fakeEmailAPI struct {
	mu            sync.Mutex
	sent          []sentEmail
	failTemplates map[string]bool
}

func (f *fakeEmailAPI) handler(w http.ResponseWriter, r *http.Request) {
	var email sentEmail
	if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.sent = append(f.sent, email)
	fail := f.failTemplates[email.TemplateID]
	f.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	_, _ = w.Write([]byte("OK"))
}

func (f *fakeEmailAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeEmailAPI) byTemplate(id string) *sentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sent {
		if f.sent[i].TemplateID == id {
			return &f.sent[i]
		}
	}
	return nil
}

func newTestMailer(t *testing.T, failTemplates ...string) (*Mailer, *fakeEmailAPI) {
	t.Helper()

	api := &fakeEmailAPI{failTemplates: map[string]bool{}}
	for _, id := range failTemplates {
		api.failTemplates[id] = true
	}

	ts := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(ts.Close)

	mailer := NewMailer(Config{
		BaseURL:          ts.URL,
		ServiceID:        "svc-1",
		PublicKey:        "pub",
		PrivateKey:       "priv",
		TemplateCustomer: "tmpl-customer",
		TemplateAdmin:    "tmpl-admin",
		AdminEmail:       "owner@shop.test",
	})
	t.Cleanup(mailer.client.GetClient().CloseIdleConnections)

	return mailer, api
}

func testOrderEmail() OrderEmail {
	return OrderEmail{
		OrderID: 42,
		Items: []models.OrderLineSummary{
			{Title: "Articulated Dragon", Quantity: 2, Price: 80},
		},
		Total: 160,
		ShippingAddress: models.ShippingAddress{
			Address:  "Av. Siempre Viva 742",
			City:     "Springfield",
			Province: "BA",
			Zip:      "1708",
		},
		CustomerEmail: "buyer@example.com",
		CustomerName:  "Ana",
		CustomerPhone: "+5491112345678",
	}
}

func TestSendOrderEmails_BothDelivered(t *testing.T) {
	mailer, api := newTestMailer(t)

	result := mailer.SendOrderEmails(context.Background(), testOrderEmail())

	assert.True(t, result.AllSent())
	assert.NoError(t, result.CustomerErr)
	assert.NoError(t, result.AdminErr)
	assert.Equal(t, 2, api.count())

	customer := api.byTemplate("tmpl-customer")
	require.NotNil(t, customer)
	assert.Equal(t, "buyer@example.com", customer.Params["to_email"])
	assert.Equal(t, "Ana", customer.Params["client_name"])
	assert.NotContains(t, customer.Params, "client_phone")

	admin := api.byTemplate("tmpl-admin")
	require.NotNil(t, admin)
	assert.Equal(t, "owner@shop.test", admin.Params["to_email"])
	assert.Equal(t, "buyer@example.com", admin.Params["client_email"])
	assert.Equal(t, "+5491112345678", admin.Params["client_phone"])
}

func TestSendOrderEmails_PartialFailureIsIsolated(t *testing.T) {
	mailer, api := newTestMailer(t, "tmpl-admin")

	result := mailer.SendOrderEmails(context.Background(), testOrderEmail())

	assert.True(t, result.CustomerSent)
	assert.False(t, result.AdminSent)
	assert.False(t, result.AllSent())
	assert.NoError(t, result.CustomerErr)
	assert.Error(t, result.AdminErr)
	assert.Equal(t, 2, api.count())
}

func TestSendOrderEmails_MissingPhoneGetsPlaceholder(t *testing.T) {
	mailer, api := newTestMailer(t)

	data := testOrderEmail()
	data.CustomerPhone = ""

	result := mailer.SendOrderEmails(context.Background(), data)
	assert.True(t, result.AllSent())

	admin := api.byTemplate("tmpl-admin")
	require.NotNil(t, admin)
	assert.Equal(t, "not provided", admin.Params["client_phone"])
}

func TestDispatcher_FireAndForgetCompletes(t *testing.T) {
	mailer, api := newTestMailer(t)
	dispatcher := NewDispatcher(mailer)

	dispatcher.DispatchAsync(testOrderEmail())

	// The caller never waits on delivery; only shutdown does.
	dispatcher.Wait()
	assert.Equal(t, 2, api.count())
}

func TestDispatcher_FailuresNeverEscape(t *testing.T) {
	mailer, api := newTestMailer(t, "tmpl-customer", "tmpl-admin")
	dispatcher := NewDispatcher(mailer)

	// Both deliveries fail; DispatchAsync must neither panic nor
	// surface anything to the caller.
	dispatcher.DispatchAsync(testOrderEmail())
	dispatcher.Wait()

	assert.Equal(t, 2, api.count())
}

func TestMailerCircuitOpensAfterRepeatedFailures(t *testing.T) {
	mailer, api := newTestMailer(t, "tmpl-customer", "tmpl-admin")

	ctx := context.Background()
	data := testOrderEmail()

	// Enough consecutive failures to trip the breaker.
	mailer.SendOrderEmails(ctx, data)
	mailer.SendOrderEmails(ctx, data)

	result := mailer.SendOrderEmails(ctx, data)
	assert.False(t, result.CustomerSent)
	assert.False(t, result.AdminSent)
	require.Error(t, result.CustomerErr)
	assert.Contains(t, result.CustomerErr.Error(), "circuit breaker")
	// The open breaker short-circuits before the wire.
	assert.Less(t, api.count(), 6)
}

func TestFormatItemsHTML(t *testing.T) {
	html := formatItemsHTML([]models.OrderLineSummary{
		{Title: "Benchy", Quantity: 1, Price: 100},
		{Title: "Planter", Quantity: 3, Price: 29.5},
	})

	assert.Contains(t, html, "<strong>Benchy</strong>")
	assert.Contains(t, html, "Quantity: 1")
	assert.Contains(t, html, "$100.00")
	assert.Contains(t, html, "<strong>Planter</strong>")
	assert.Contains(t, html, "Quantity: 3")
	assert.Contains(t, html, "$29.50")
}

func TestFormatAddress(t *testing.T) {
	t.Run("full address", func(t *testing.T) {
		s := formatAddress(models.ShippingAddress{
			Address:   "Calle Falsa 123",
			City:      "Springfield",
			Province:  "BA",
			Zip:       "1708",
			Reference: "blue door",
		})
		assert.Equal(t, "Calle Falsa 123, Springfield (BA) - ZIP: 1708<br>Ref: blue door", s)
	})

	t.Run("empty address means pickup", func(t *testing.T) {
		assert.Equal(t, "Pickup in store", formatAddress(models.ShippingAddress{}))
	})
}
