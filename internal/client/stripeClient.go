package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ywfa-shop/internal/config"
)

var (
	ErrBadSignature = errors.New("webhook signature verification failed")
)

// Tolerance for the timestamp embedded in a webhook signature header.
const signatureTolerance = 5 * time.Minute

type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error)
	VerifyWebhookSignature(payload []byte, signatureHeader string) error
}

type LineItem struct {
	Name       string
	Quantity   int
	UnitAmount int64 // minor units (cents)
	Currency   string
}

type CheckoutSessionParams struct {
	SuccessURL        string
	CancelURL         string
	ClientReferenceID string
	LineItems         []LineItem
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`

	// Raw is the provider's full session payload, kept for the audit log.
	Raw string `json:"-"`
}

type stripeClientImpl struct {
	httpClient     *http.Client
	baseApiURL     string
	secretKey      string
	endpointSecret string
	now            func() time.Time
}

func NewStripeClient(stripeCfg *config.Stripe) StripeClient {
	return &stripeClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:     stripeCfg.BaseApiURL,
		secretKey:      stripeCfg.SecretKey,
		endpointSecret: stripeCfg.EndpointSecret,
		now:            time.Now,
	}
}

// CreateCheckoutSession opens a hosted-checkout session. The call is a
// single bounded round trip; failures surface to the caller and are not
// retried here, since a retry could mint a duplicate provider session.
func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("client_reference_id", params.ClientReferenceID)
	form.Set("payment_method_types[0]", "card")
	for i, item := range params.LineItems {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[price_data][currency]", item.Currency)
		form.Set(prefix+"[price_data][unit_amount]", strconv.FormatInt(item.UnitAmount, 10))
		form.Set(prefix+"[price_data][product_data][name]", item.Name)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseApiURL+"/v1/checkout/sessions",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("stripe error %d: %s", resp.StatusCode, string(body))
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode stripe response: %w", err)
	}
	session.Raw = string(body)

	return &session, nil
}

// VerifyWebhookSignature checks a Stripe-Signature header
// ("t=<unix>,v1=<hex hmac>") against the payload using the shared endpoint
// secret. The signed message is "<t>.<payload>".
func (c *stripeClientImpl) VerifyWebhookSignature(payload []byte, signatureHeader string) error {
	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return err
	}

	age := c.now().Sub(time.Unix(timestamp, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrBadSignature)
	}

	mac := hmac.New(sha256.New, []byte(c.endpointSecret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return nil
		}
	}

	return ErrBadSignature
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var timestamp int64
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			t, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrBadSignature)
			}
			timestamp = t
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed header", ErrBadSignature)
	}
	return timestamp, signatures, nil
}
