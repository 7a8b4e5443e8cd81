// Package webhook delivers critical-vital alerts to an external endpoint
// (pager, ward display, messenger bridge) as HMAC-SHA256 signed JSON.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const EventCriticalVitals = "vitals.critical"

// Alert is the body posted to the alert endpoint.
type Alert struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	PatientID     string    `json:"patient_id"`
	PatientName   string    `json:"patient_name,omitempty"`
	Room          string    `json:"room,omitempty"`
	MitarbeiterID string    `json:"mitarbeiter_id,omitempty"`
	VitalID       string    `json:"vital_id"`
	Severity      string    `json:"severity"`
	Findings      []string  `json:"findings"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// DeliveryAttempt records the outcome of one Send.
type DeliveryAttempt struct {
	AlertID    string        `json:"alert_id"`
	Signature  string        `json:"signature"`
	StatusCode int           `json:"status_code"`
	Duration   time.Duration `json:"duration_ns"`
	Status     string        `json:"status"` // "success", "failed"
	Error      string        `json:"error,omitempty"`
}

// Notifier sends alerts. Implemented by Sender and Nop.
type Notifier interface {
	Send(ctx context.Context, alert Alert) (*DeliveryAttempt, error)
}

// SignPayload computes an HMAC-SHA256 signature of the payload using the given secret,
// returning the hex-encoded result.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature returns true when the hex-encoded signature matches the HMAC-SHA256
// of payload under the given secret.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Option configures a Sender.
type Option func(*Sender)

// WithRetries sets how often a failed delivery is retried and the base wait.
func WithRetries(n int, wait time.Duration) Option {
	return func(s *Sender) {
		s.client.SetRetryCount(n).SetRetryWaitTime(wait).SetRetryMaxWaitTime(wait * 4)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Sender) { s.client.SetTimeout(d) }
}

// Sender posts alerts with resty. Server errors and transport errors are
// retried; 4xx responses are not.
type Sender struct {
	client *resty.Client
	url    string
	secret string
	now    func() time.Time
}

func NewSender(rawURL, secret string, opts ...Option) (*Sender, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	s := &Sender{client: client, url: rawURL, secret: secret, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// Send signs and posts the alert. A non-2xx final response is returned as an
// error together with the attempt.
func (s *Sender) Send(ctx context.Context, alert Alert) (*DeliveryAttempt, error) {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Type == "" {
		alert.Type = EventCriticalVitals
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("marshal alert: %w", err)
	}

	attempt := &DeliveryAttempt{AlertID: alert.ID}
	req := s.client.R().
		SetContext(ctx).
		SetHeader("X-Webhook-ID", alert.ID).
		SetHeader("X-Webhook-Timestamp", s.now().UTC().Format(time.RFC3339)).
		SetBody(payload)
	if s.secret != "" {
		attempt.Signature = SignPayload(payload, s.secret)
		req.SetHeader("X-Webhook-Signature", "sha256="+attempt.Signature)
	}

	start := time.Now()
	resp, err := req.Post(s.url)
	attempt.Duration = time.Since(start)
	if err != nil {
		attempt.Status = "failed"
		attempt.Error = err.Error()
		return attempt, fmt.Errorf("post alert: %w", err)
	}

	attempt.StatusCode = resp.StatusCode()
	if resp.IsSuccess() {
		attempt.Status = "success"
		return attempt, nil
	}
	attempt.Status = "failed"
	attempt.Error = fmt.Sprintf("non-2xx response: %d", resp.StatusCode())
	return attempt, fmt.Errorf("post alert: %s", attempt.Error)
}

// Nop drops alerts. Used when ALERT_WEBHOOK_URL is unset.
type Nop struct{}

func (Nop) Send(_ context.Context, alert Alert) (*DeliveryAttempt, error) {
	return &DeliveryAttempt{AlertID: alert.ID, Status: "skipped"}, nil
}
