// Package notify delivers job status updates to a client-supplied webhook.
// Terminal statuses (ready, failed) are retried; intermediate progress is
// fire-and-forget so a flaky receiver never stalls a render.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/rankforge/rankreel/internal/models"
)

const (
	requestTimeout = 15 * time.Second
	maxRetries     = 3
	retryDelay     = 2 * time.Second
)

type Notifier struct {
	client *http.Client
}

func New() *Notifier {
	return &Notifier{
		client: &http.Client{Timeout: requestTimeout},
	}
}

// NotifyProgress posts an intermediate update. Failures are logged and
// swallowed; polling clients still see progress through the job row.
func (n *Notifier) NotifyProgress(ctx context.Context, webhookURL string, update models.StatusUpdate) {
	if webhookURL == "" {
		return
	}
	if err := n.post(ctx, webhookURL, update); err != nil {
		log.Printf("[Notify] progress update for job %s dropped: %v", update.JobID, err)
	}
}

// NotifyTerminal posts a terminal update with retries. The caller invokes
// this exactly once per job, with either ready or failed.
func (n *Notifier) NotifyTerminal(ctx context.Context, webhookURL string, update models.StatusUpdate) error {
	if webhookURL == "" {
		return nil
	}
	if !update.Status.Terminal() {
		return fmt.Errorf("status %s is not terminal", update.Status)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("notification cancelled: %w", ctx.Err())
			case <-time.After(retryDelay):
			}
		}

		if lastErr = n.post(ctx, webhookURL, update); lastErr == nil {
			return nil
		}
		log.Printf("[Notify] terminal update attempt %d for job %s failed: %v", attempt+1, update.JobID, lastErr)
	}

	return fmt.Errorf("terminal notification failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (n *Notifier) post(ctx context.Context, webhookURL string, update models.StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}
