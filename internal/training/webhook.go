package training

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/utils"
)

const webhookTimeout = 5 * time.Second

// Event is the progress payload posted to the training webhook.
type Event struct {
	OrganizationID string `json:"organization_id"`
	Status         string `json:"status"`
	Progress       int    `json:"progress"`
	Message        string `json:"message"`
	Error          string `json:"error,omitempty"`
}

// Webhook posts progress events. Delivery failures are logged only.
type Webhook struct {
	client     *http.Client
	maxRetries uint64
	backoff    func() backoff.BackOff
}

func NewWebhook() *Webhook {
	return &Webhook{
		client:     &http.Client{Timeout: webhookTimeout},
		maxRetries: 2,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// Send posts ev to url, or only logs it when url is empty.
func (w *Webhook) Send(ctx context.Context, url string, ev Event) {
	if url == "" {
		utils.Zlog.Info("Training progress",
			zap.String("organization_id", ev.OrganizationID),
			zap.String("status", ev.Status),
			zap.Int("progress", ev.Progress),
			zap.String("message", ev.Message))
		return
	}

	body, err := json.Marshal(ev)
	if err != nil {
		utils.Zlog.Error("Failed to marshal webhook event", zap.Error(err))
		return
	}

	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, webhookTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(w.backoff(), w.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		utils.Zlog.Warn("Training webhook delivery failed",
			zap.String("organization_id", ev.OrganizationID),
			zap.String("status", ev.Status),
			zap.Error(err))
	}
}
