// Package razorpay adapts the Razorpay SDK to the subscription flow.
package razorpay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

type Client struct {
	keyID         string
	keySecret     string
	webhookSecret string
	api           *rzp.Client
}

// New builds a client. baseURL may carry the API version suffix; the SDK
// adds it to every path itself.
func New(keyID, keySecret, webhookSecret, baseURL string) *Client {
	api := rzp.NewClient(keyID, keySecret)
	rzp.Request.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	if base := strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/v1"); base != "" {
		rzp.Request.BaseURL = base
	}
	return &Client{keyID: keyID, keySecret: keySecret, webhookSecret: webhookSecret, api: api}
}

func (c *Client) KeyID() string { return c.keyID }

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Subscription struct {
	ID         string `json:"id"`
	PlanID     string `json:"plan_id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	ShortURL   string `json:"short_url"`
}

func (c *Client) CreateCustomer(ctx context.Context, name, email, contact string) (*Customer, error) {
	var out Customer
	err := call(ctx, "create customer", &out, func() (map[string]interface{}, error) {
		return c.api.Customer.Create(map[string]interface{}{
			"name":          name,
			"email":         email,
			"contact":       contact,
			"fail_existing": "0",
		}, nil)
	})
	return &out, err
}

func (c *Client) CreateSubscription(ctx context.Context, planID, customerID string, totalCount int, notes map[string]string) (*Subscription, error) {
	body := map[string]interface{}{
		"plan_id":         planID,
		"total_count":     totalCount,
		"quantity":        1,
		"customer_notify": 1,
		"notes":           notes,
	}
	if customerID != "" {
		body["customer_id"] = customerID
	}
	var out Subscription
	err := call(ctx, "create subscription", &out, func() (map[string]interface{}, error) {
		return c.api.Subscription.Create(body, nil)
	})
	return &out, err
}

// CancelSubscription cancels immediately rather than at the cycle end.
func (c *Client) CancelSubscription(ctx context.Context, id string) (*Subscription, error) {
	var out Subscription
	err := call(ctx, "cancel subscription", &out, func() (map[string]interface{}, error) {
		return c.api.Subscription.Cancel(id, map[string]interface{}{"cancel_at_cycle_end": 0}, nil)
	})
	return &out, err
}

// call runs a blocking SDK request and stops waiting once ctx is done. The
// request itself is bounded by the HTTP client timeout.
func call(ctx context.Context, op string, out any, fn func() (map[string]interface{}, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case r := <-done:
		if r.err != nil {
			return errors.Wrap(r.err, "razorpay: "+op)
		}
		raw, err := json.Marshal(r.body)
		if err != nil {
			return err
		}
		return errors.Wrap(json.Unmarshal(raw, out), "razorpay: decode "+op)
	}
}

// VerifyPaymentSignature checks the checkout callback signature, an HMAC of
// "payment_id|subscription_id" keyed with the API secret.
func (c *Client) VerifyPaymentSignature(paymentID, subscriptionID, signature string) bool {
	if signature == "" {
		return false
	}
	return utils.VerifySignature([]byte(paymentID+"|"+subscriptionID), signature, c.keySecret)
}

// VerifyWebhookSignature checks X-Razorpay-Signature. Without a configured
// secret every payload is accepted.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c.webhookSecret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, c.webhookSecret)
}

// WebhookEvent is the subset of the webhook payload the service reads.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Subscription struct {
			Entity Subscription `json:"entity"`
		} `json:"subscription"`
		Payment struct {
			Entity struct {
				ID       string `json:"id"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
				Method   string `json:"method"`
				OrderID  string `json:"order_id"`
			} `json:"entity"`
		} `json:"payload"`
	} `json:"payload"`
}

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
