package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"strings"
)

// Config adds edtriage-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APITokens             string
	SlackWebhookURL       string
	NotifyLevel           int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APITokens, "api-tokens", "", "triage station bearer tokens as station=token,station=token")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for admission pages (empty = disabled)")
	fs.IntVar(&c.NotifyLevel, "notify-level", 1, "least urgent ESI level that pages the team (1..5)")
}

// StationTokens parses APITokens into a token -> station map.
func (c *Config) StationTokens() (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(c.APITokens, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		station, token, ok := strings.Cut(pair, "=")
		station, token = strings.TrimSpace(station), strings.TrimSpace(token)
		if !ok || station == "" || token == "" {
			return nil, fmt.Errorf("invalid API_TOKENS entry %q (want station=token)", pair)
		}
		if prev, dup := out[token]; dup {
			return nil, fmt.Errorf("API_TOKENS token for %q reused by %q", prev, station)
		}
		out[token] = station
	}
	return out, nil
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// the triage API is never served without station tokens
	if tokens, err := c.StationTokens(); err != nil {
		errs = append(errs, err)
	} else if len(tokens) == 0 {
		errs = append(errs, errors.New("API_TOKENS is required"))
	}

	if c.SlackWebhookURL != "" {
		if u, err := url.Parse(c.SlackWebhookURL); err != nil || u.Scheme != "https" || u.Host == "" {
			errs = append(errs, errors.New("invalid SLACK_WEBHOOK_URL (must be an https URL)"))
		}
	}

	if c.NotifyLevel < 1 || c.NotifyLevel > 5 {
		errs = append(errs, fmt.Errorf("invalid NOTIFY_LEVEL %d (must be 1..5)", c.NotifyLevel))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
