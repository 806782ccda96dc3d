// Package slack pages the emergency team about high-acuity admissions via
// Slack incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/edtriage/internal/esi"
	"github.com/linnemanlabs/edtriage/internal/intake"
)

const (
	maxSectionLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier sends admission pages to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Send posts an admission page to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
// Patient identifiers are never included; the record ID is the handle.
func (n *Notifier) Send(ctx context.Context, a *intake.Admission) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(a)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "admission page sent", "record_id", recordID(a), "level", a.Result.Level.String())
	return nil
}

func buildMessage(a *intake.Admission) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(a),
			{"type": "divider"},
			fieldsBlock(a),
			{"type": "divider"},
			listBlock("Rationale", a.Result.Rationale, "_No rationale recorded._"),
			listBlock("Immediate actions", a.Result.ImmediateActions, "_No immediate actions listed._"),
			{"type": "divider"},
			contextBlock(a),
		},
	}
}

func headerBlock(a *intake.Admission) map[string]any {
	r := a.Result
	text := fmt.Sprintf("%s %s %s: %s", levelEmoji(r.Level), r.Level, r.Label, r.Area)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": truncate(text, 150),
		},
	}
}

func fieldsBlock(a *intake.Admission) map[string]any {
	field := func(label, value string) map[string]any {
		if value == "" {
			value = "-"
		}
		return map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s:* %s", label, value),
		}
	}

	var arrival, station string
	if a.Record != nil {
		arrival = string(a.Record.Input.Arrival)
		station = a.Record.Checklist.RecordedBy
	}

	return map[string]any{
		"type": "section",
		"fields": []map[string]any{
			field("Area", a.Result.Area),
			field("Target", a.Result.TargetPhysicianTime),
			field("Queue", queueStatus(a)),
			field("Record", recordID(a)),
			field("Arrival", arrival),
			field("Station", station),
		},
	}
}

func queueStatus(a *intake.Admission) string {
	q := a.Queue
	if q.Bypassed {
		return "bypassed to " + q.Area
	}
	return fmt.Sprintf("position %d, est. %d min", q.Position, int(q.EstimatedWait.Minutes()))
}

func listBlock(title string, items []string, empty string) map[string]any {
	text := empty
	if len(items) > 0 {
		var b strings.Builder
		for _, it := range items {
			b.WriteString("• ")
			b.WriteString(it)
			b.WriteByte('\n')
		}
		text = truncate(strings.TrimSuffix(b.String(), "\n"), maxSectionLen)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*%s*\n\n%s", title, text),
		},
	}
}

func contextBlock(a *intake.Admission) map[string]any {
	ts := a.Result.ComputedAt
	if a.Record != nil && !a.Record.RecordedAt.IsZero() {
		ts = a.Record.RecordedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("edtriage • rule %s • %s", a.Result.Rule, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func recordID(a *intake.Admission) string {
	if a.Record == nil {
		return ""
	}
	return a.Record.ID
}

func levelEmoji(l esi.Level) string {
	switch l {
	case esi.Level1:
		return "\U0001f534" // red circle
	case esi.Level2:
		return "\U0001f7e0" // orange circle
	case esi.Level3:
		return "\U0001f7e1" // yellow circle
	case esi.Level4:
		return "\U0001f7e2" // green circle
	default:
		return "\U0001f535" // blue circle
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
