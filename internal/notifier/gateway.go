package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"evalreport-go/internal/logger"
	"github.com/cenkalti/backoff/v4"
)

// Sender delivers a formatted message to a phone number.
type Sender interface {
	Send(ctx context.Context, target, message string) error
}

var ErrGatewayRejected = errors.New("gateway rejected message")

type GatewayConfig struct {
	URL         string
	Key         string
	CountryCode string
	Timeout     time.Duration
	// MaxRetries is the number of extra attempts after a failed delivery.
	MaxRetries int
}

// Gateway posts messages to a WhatsApp HTTP gateway as multipart form fields
// target, message and countryCode. A truthy JSON "status" means success.
type Gateway struct {
	cfg    GatewayConfig
	client *http.Client
	log    *logger.Logger
}

func NewGateway(cfg GatewayConfig, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.CountryCode == "" {
		cfg.CountryCode = "62"
	}
	return &Gateway{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}, log: log.Component("wa-gateway")}
}

type gatewayResponse struct {
	Status any    `json:"status"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (g *Gateway) Send(ctx context.Context, target, message string) error {
	log := g.log.WithField("target", target)
	if g.cfg.URL == "" {
		return fmt.Errorf("WA_GATEWAY_URL not configured")
	}

	var lastErr error
	op := func() error {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)
		_ = w.WriteField("target", target)
		_ = w.WriteField("message", message)
		_ = w.WriteField("countryCode", g.cfg.CountryCode)
		_ = w.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, &body)
		if err != nil {
			lastErr = err
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		if g.cfg.Key != "" {
			req.Header.Set("Authorization", g.cfg.Key)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			lastErr = err
			log.WithError(err).Warn("gateway request failed")
			return err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		log.WithField("http_status", resp.StatusCode).Debug("gateway raw:\n" + string(raw))

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("gateway server error: %s", string(raw))
			return lastErr
		}
		var parsed gatewayResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			lastErr = fmt.Errorf("json decode error: %v body=%s", err, string(raw))
			return backoff.Permanent(lastErr)
		}
		if !truthy(parsed.Status) {
			reason := parsed.Reason
			if reason == "" {
				reason = parsed.Detail
			}
			lastErr = fmt.Errorf("%w: %s", ErrGatewayRejected, reason)
			return backoff.Permanent(lastErr)
		}
		lastErr = nil
		return nil
	}

	retries := g.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return fmt.Errorf("sending message: %w", lastErr)
	}
	return nil
}

// truthy mirrors loose JSON truthiness: true, non-zero numbers and
// non-empty strings other than "false" and "0".
func truthy(v any) bool {
	switch s := v.(type) {
	case bool:
		return s
	case float64:
		return s != 0
	case string:
		s = strings.TrimSpace(strings.ToLower(s))
		if s == "" || s == "false" {
			return false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0
		}
		return true
	}
	return false
}
