package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/use-agent/docharvest/models"
)

// EventHarvestCompleted is sent once the output file has been written.
const EventHarvestCompleted = "harvest.completed"

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Harvest-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string  `json:"type"`
	Timestamp int64   `json:"timestamp"`
	Data      Summary `json:"data"`
}

// Summary describes a finished run.
type Summary struct {
	Output     string   `json:"output"`
	Successful int      `json:"successful"`
	Total      int      `json:"total"`
	Failed     []string `json:"failed"`
}

// NewCompletedEvent builds the completion event for results written to output.
func NewCompletedEvent(output string, results []models.ScrapeResult) *Event {
	s := Summary{Output: output, Total: len(results), Failed: []string{}}
	for _, r := range results {
		if r.Success {
			s.Successful++
		} else {
			s.Failed = append(s.Failed, r.Name)
		}
	}
	return &Event{
		Type:      EventHarvestCompleted,
		Timestamp: time.Now().Unix(),
		Data:      s,
	}
}

// Deliver sends a webhook event synchronously, once.
// The request body is signed with HMAC-SHA256 if secret is non-empty.
func Deliver(ctx context.Context, url, secret string, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "docharvest-webhook/1.0")

	if secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(secret, body))
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
