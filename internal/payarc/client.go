package payarc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PortNumber53/payarc-mid/backend/internal/models"
)

// RequestTimeout bounds every processor call.
const RequestTimeout = 30 * time.Second

const (
	liveBaseURL = "https://api.payarc.net/v1/"
	testBaseURL = "https://testapi.payarc.net/v1/"

	// maxResponseBytes bounds how much of a processor response is buffered.
	maxResponseBytes = 1 << 20
)

// Address is the optional billing address sent with a new customer.
type Address struct {
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
	Phone    string
}

// Client wraps the PayArc REST API directly (no SDK dependency).
type Client struct {
	apiKey     string
	baseURL    string
	debug      bool
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a PayArc client. testMode selects the sandbox endpoint and
// debug logs every request/response pair.
func NewClient(apiKey string, testMode, debug bool, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    liveBaseURL,
		debug:      debug,
		httpClient: &http.Client{Timeout: RequestTimeout},
	}
	if testMode {
		c.baseURL = testBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateCustomer creates a processor customer and returns its id.
func (c *Client) CreateCustomer(ctx context.Context, email, name string, address *Address) (string, error) {
	data := url.Values{}
	data.Set("name", SanitizeText(name))
	data.Set("email", SanitizeEmail(email))
	if address != nil {
		data.Set("address_1", SanitizeText(address.Address1))
		data.Set("address_2", SanitizeText(address.Address2))
		data.Set("city", SanitizeText(address.City))
		data.Set("state", SanitizeText(address.State))
		data.Set("zip", SanitizeText(address.Zip))
		data.Set("country", SanitizeText(address.Country))
		data.Set("phone", SanitizeText(address.Phone))
	}

	resp, err := c.do(ctx, "create customer", http.MethodPost, "customers", data)
	if err != nil {
		return "", err
	}
	return dataID("create customer", resp)
}

// TokenizeCard exchanges raw card data for a single-use token id.
func (c *Client) TokenizeCard(ctx context.Context, card models.CardInput) (string, error) {
	card = card.Normalized()

	data := url.Values{}
	data.Set("card_source", "INTERNET")
	data.Set("card_number", card.Number)
	data.Set("exp_month", strconv.Itoa(absint(card.ExpMonth)))
	data.Set("exp_year", strconv.Itoa(absint(card.ExpYear)))
	data.Set("cvv", card.CVV)
	data.Set("authorize_card", "1")

	resp, err := c.do(ctx, "tokenize card", http.MethodPost, "tokens", data)
	if err != nil {
		return "", err
	}
	return dataID("tokenize card", resp)
}

// AttachToken stores the card token on the customer record.
func (c *Client) AttachToken(ctx context.Context, customerID, tokenID string) error {
	data := url.Values{}
	data.Set("token_id", SanitizeText(tokenID))

	_, err := c.do(ctx, "attach token", http.MethodPatch, "customers/"+url.PathEscape(customerID), data)
	return err
}

// CreatePlan creates a recurring billing plan. amount is in major units and is
// converted to cents before transmission.
func (c *Client) CreatePlan(ctx context.Context, amount decimal.Decimal, interval, name, planCode string) (string, error) {
	name = SanitizeText(name)

	data := url.Values{}
	data.Set("amount", strconv.FormatInt(ToMinorUnits(amount), 10))
	data.Set("currency", "usd")
	data.Set("interval", SanitizeText(interval))
	data.Set("interval_count", "1")
	data.Set("name", name)
	data.Set("plan_code", SanitizeText(planCode))
	data.Set("statement_descriptor", truncate(name, 25))

	resp, err := c.do(ctx, "create plan", http.MethodPost, "plans", data)
	if err != nil {
		return "", err
	}
	return dataID("create plan", resp)
}

// CreateSubscription subscribes a customer to a plan with automatic charging.
func (c *Client) CreateSubscription(ctx context.Context, customerID, planID string) (string, error) {
	data := url.Values{}
	data.Set("customer_id", SanitizeText(customerID))
	data.Set("plan_id", SanitizeText(planID))
	data.Set("billing_type", "1")

	resp, err := c.do(ctx, "create subscription", http.MethodPost, "subscriptions", data)
	if err != nil {
		return "", err
	}
	return dataID("create subscription", resp)
}

// CancelSubscription cancels a processor subscription.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := c.do(ctx, "cancel subscription", http.MethodPost, "subscriptions/"+url.PathEscape(subscriptionID)+"/cancel", nil)
	return err
}

// HTTP helpers

func (c *Client) do(ctx context.Context, op, method, path string, data url.Values) (map[string]interface{}, error) {
	var body io.Reader
	if len(data) > 0 {
		body = strings.NewReader(data.Encode())
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.debug {
			log.Printf("[payarc] %s %s failed: %v", method, endpoint, err)
		}
		return nil, &Error{Op: op, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		return nil, &Error{Op: op, Kind: KindTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if c.debug {
		logged := buf.String()
		if path == "tokens" {
			logged = "[redacted]"
		}
		log.Printf("[payarc] %s %s | status=%d | response: %s", method, endpoint, resp.StatusCode, logged)
	}

	var result map[string]interface{}
	parseErr := json.Unmarshal(buf.Bytes(), &result)

	if resp.StatusCode >= 400 {
		msg := ""
		if parseErr == nil {
			msg, _ = result["message"].(string)
		}
		return nil, &Error{Op: op, Kind: KindAPI, StatusCode: resp.StatusCode, Message: msg}
	}

	if parseErr != nil {
		return nil, &Error{Op: op, Kind: KindResponse, StatusCode: resp.StatusCode, Err: fmt.Errorf("parse response: %w", parseErr)}
	}

	return result, nil
}

func dataID(op string, resp map[string]interface{}) (string, error) {
	data, _ := resp["data"].(map[string]interface{})
	var id string
	switch v := data["id"].(type) {
	case string:
		id = v
	case float64:
		id = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if id == "" {
		return "", &Error{Op: op, Kind: KindResponse, Err: fmt.Errorf("missing data.id in response")}
	}
	return id, nil
}
