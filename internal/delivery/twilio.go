package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/tiffinbill/internal/clock"
	"github.com/smallbiznis/tiffinbill/internal/config"
	"github.com/smallbiznis/tiffinbill/internal/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// 1 initial attempt plus 3 retries.
	maxAttempts    = 4
	baseBackoff    = time.Second
	jitterFraction = 0.25

	dryRunPrefix = "[DRY RUN] "
)

// Outcome is the per-message result written back to the row store's status
// column. It is terminal within the current operation.
type Outcome struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Color   string `json:"color"`
}

// Palette carries the configured presentation colors for row highlighting.
type Palette struct {
	Success string
	Error   string
	DryRun  string
}

// Account is the provider's answer to a credential check. No message is sent.
type Account struct {
	FriendlyName string `json:"friendly_name"`
	Status       string `json:"status"`
}

// Sender delivers one message through the SMS provider.
type Sender interface {
	Send(ctx context.Context, to, body string, dryRun bool, palette Palette) Outcome
	VerifyCredentials(ctx context.Context) (Account, error)
}

// Factory builds a Sender bound to one operation's resolved credentials.
type Factory interface {
	New(creds Credentials) Sender
}

type FactoryParams struct {
	fx.In

	Config  config.Config
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type twilioFactory struct {
	baseURL string
	client  *http.Client
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewFactory(p FactoryParams) Factory {
	return &twilioFactory{
		baseURL: strings.TrimRight(p.Config.TwilioBaseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		clock:   p.Clock,
		log:     p.Log.Named("delivery.twilio"),
		metrics: p.Metrics,
	}
}

func (f *twilioFactory) New(creds Credentials) Sender {
	return &Client{
		creds:   creds,
		baseURL: f.baseURL,
		client:  f.client,
		clock:   f.clock,
		log:     f.log,
		metrics: f.metrics,
	}
}

// Client talks to the Twilio message API for a single operation.
type Client struct {
	creds   Credentials
	baseURL string
	client  *http.Client
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
}

type providerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts one message, retrying transient failures with exponential
// backoff. Dry-run short-circuits before any network traffic and reports a
// simulated success.
func (c *Client) Send(ctx context.Context, to, body string, dryRun bool, palette Palette) Outcome {
	if dryRun {
		return Outcome{
			Success: true,
			Status:  dryRunPrefix + "Would send at " + c.clock.Now().Format("2006-01-02 15:04"),
			Color:   palette.DryRun,
		}
	}

	var lastErr string
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			c.metrics.RecordRetry()
			c.clock.Sleep(ctx, backoffDelay(attempt-1))
		}

		status, retryable, err := c.post(ctx, to, body)
		if err == nil {
			return Outcome{
				Success: true,
				Status:  "Sent " + c.clock.Now().Format("2006-01-02 15:04"),
				Color:   palette.Success,
			}
		}

		lastErr = err.Error()
		c.log.Warn("message send failed",
			zap.Int("attempt", attempt+1),
			zap.Int("http_status", status),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		if !retryable {
			return Outcome{Success: false, Status: "Failed: " + lastErr, Color: palette.Error}
		}
	}

	return Outcome{Success: false, Status: "Failed after retries: " + lastErr, Color: palette.Error}
}

// post performs one attempt. It reports the HTTP status (0 for transport
// errors) and whether the failure is worth retrying.
func (c *Client) post(ctx context.Context, to, body string) (int, bool, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.creds.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.creds.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.creds.AccountSID, c.creds.AuthToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, isTransientError(err), err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return resp.StatusCode, false, nil
	}

	var provErr providerError
	message := "provider request failed"
	if decodeErr := json.NewDecoder(resp.Body).Decode(&provErr); decodeErr == nil && provErr.Message != "" {
		message = provErr.Message
	}

	return resp.StatusCode, isRetryableStatus(resp.StatusCode),
		fmt.Errorf("http %d: %s", resp.StatusCode, message)
}

// VerifyCredentials fetches the account resource without sending a message.
func (c *Client) VerifyCredentials(ctx context.Context) (Account, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", c.baseURL, c.creds.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Account{}, err
	}
	req.SetBasicAuth(c.creds.AccountSID, c.creds.AuthToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return Account{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Account{}, fmt.Errorf("credential check failed: http %d", resp.StatusCode)
	}

	var account Account
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return Account{}, err
	}
	return account, nil
}

var retryableStatuses = map[int]struct{}{
	http.StatusRequestTimeout:      {},
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

func isRetryableStatus(status int) bool {
	_, ok := retryableStatuses[status]
	return ok
}

var transientPatterns = []string{
	"timeout",
	"connection reset",
	"connection refused",
	"network",
	"socket",
	"temporarily unavailable",
}

func isTransientError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// backoffDelay returns 1s * 2^attempt jittered by up to ±25% so retries
// across a batch do not synchronize.
func backoffDelay(attempt int) time.Duration {
	base := baseBackoff * time.Duration(1<<attempt)
	jitter := 1 + jitterFraction*(2*rand.Float64()-1)
	return time.Duration(float64(base) * jitter)
}

// Module wires the credential resolver and the sender factory.
var Module = fx.Module("delivery",
	fx.Provide(NewResolver),
	fx.Provide(NewFactory),
)
