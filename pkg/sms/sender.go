package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrDisabled signals that SMS delivery is disabled via configuration.
var ErrDisabled = errors.New("sms: delivery disabled")

// Sender defines behaviour for delivering a text message to a phone number.
type Sender interface {
	SendText(ctx context.Context, phoneNumber, message string) error
}

// Settings capture the runtime configuration required by the HTTP gateway sender.
type Settings struct {
	Enabled   bool
	BaseURL   string
	AccountID string
	AuthToken string
	From      string
	Timeout   time.Duration
}

const defaultTimeout = 10 * time.Second

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-()]{5,}$`)

// NewSender builds a gateway-backed sender. When delivery is disabled a
// log-only sender is returned so the dispatcher keeps working in development.
func NewSender(cfg Settings, log *zap.Logger) (Sender, error) {
	if !cfg.Enabled {
		return &logSender{log: log}, nil
	}

	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("sms: base url is required when delivery is enabled")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("sms: sender number is required when delivery is enabled")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &gatewaySender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// gatewaySender posts messages to a Twilio-compatible HTTP gateway.
type gatewaySender struct {
	cfg    Settings
	client *http.Client
}

func (s *gatewaySender) SendText(ctx context.Context, phoneNumber, message string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if !phonePattern.MatchString(phoneNumber) {
		return fmt.Errorf("sms: invalid phone number %q", phoneNumber)
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("sms: message body is required")
	}

	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("From", s.cfg.From)
	form.Set("Body", message)

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/Messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.cfg.AccountID != "" {
		req.SetBasicAuth(s.cfg.AccountID, s.cfg.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms: gateway responded %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}

// logSender records outbound messages without delivering them.
type logSender struct {
	log *zap.Logger
}

func (s *logSender) SendText(_ context.Context, phoneNumber, message string) error {
	if s.log != nil {
		s.log.Info("sms delivery disabled; message logged only",
			zap.String("to", maskPhone(phoneNumber)),
			zap.Int("length", len(message)),
		)
	}
	return nil
}

func maskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
