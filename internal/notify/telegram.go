// Package notify sends cycle-engine alerts to a Telegram chat. The HTTP
// mechanics are carried near-verbatim from the teacher's notifier; only
// the event methods are rewritten, from Polymarket fill/stop-loss events
// to cycle-engine events (closed or skipped cycles, emergency unwinds,
// halts, daily summaries).
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/GoPolymarket/pairbot/internal/accounting"
	"github.com/GoPolymarket/pairbot/internal/unwind"
)

// Notifier sends alerts to a Telegram chat via the Bot API.
type Notifier struct {
	botToken   string
	chatID     string
	httpClient *http.Client
	enabled    bool
	baseURL    string // overridable for testing; defaults to Telegram API
}

// NewNotifier creates a Notifier. Notifications are enabled only when both
// botToken and chatID are non-empty.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken:   botToken,
		chatID:     chatID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		enabled:    botToken != "" && chatID != "",
	}
}

// Enabled reports whether the notifier is active.
func (n *Notifier) Enabled() bool { return n.enabled }

// Send posts a message to the configured Telegram chat.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.enabled {
		return nil
	}

	endpoint := n.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", n.botToken)
	}
	vals := url.Values{
		"chat_id":    {n.chatID},
		"text":       {msg},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.URL.RawQuery = vals.Encode()

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return fmt.Errorf("notify: telegram %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

// NotifyCycleClosed reports a completed (or skipped) cycle, satisfying
// cycle.Notifier.
func (n *Notifier) NotifyCycleClosed(ctx context.Context, rec accounting.CycleRecord) error {
	if rec.IsSkip() {
		msg := fmt.Sprintf("<b>Cycle %d Skipped</b>\nDirection: %s\nReason: %s", rec.CycleID, rec.Direction, rec.SkipReason)
		return n.Send(ctx, msg)
	}
	msg := fmt.Sprintf(
		"<b>Cycle %d Closed</b>\nDirection: %s\nHold: %.0fs\nPnL (fee-adj): %s USD\nFunding: %s USD\nFees: %s USD",
		rec.CycleID, rec.Direction, rec.HoldSeconds, rec.PnLWithFeeUSD.StringFixed(2), rec.FundingPnLUSD.StringFixed(2), rec.FeesUSD.StringFixed(2),
	)
	return n.Send(ctx, msg)
}

// NotifyEmergencyUnwind reports an Emergency Unwind Handler invocation,
// satisfying cycle.Notifier.
func (n *Notifier) NotifyEmergencyUnwind(ctx context.Context, reason string, res unwind.Result) error {
	status := "flat"
	if !res.AllFlat {
		status = fmt.Sprintf("NOT flat, halted on %s", res.HaltedOn)
	}
	msg := fmt.Sprintf("<b>Emergency Unwind</b>\nReason: %s\nResult: %s", reason, status)
	return n.Send(ctx, msg)
}

// NotifyHalt reports the Governor latching the engine halted, satisfying
// cycle.Notifier.
func (n *Notifier) NotifyHalt(ctx context.Context, reason string) error {
	return n.Send(ctx, fmt.Sprintf("<b>ENGINE HALTED</b>\n%s", reason))
}

// NotifyDailySummary sends a daily performance summary.
func (n *Notifier) NotifyDailySummary(ctx context.Context, snap accounting.Snapshot) error {
	msg := fmt.Sprintf(
		"<b>Daily Summary</b>\nCycles: %d profitable / %d losing / %d zero\nCumulative PnL: %s USD\nCumulative Fees: %s USD",
		snap.ProfitableCycles, snap.LosingCycles, snap.ZeroCycles,
		snap.CumulativePnLWithFee.StringFixed(2), snap.CumulativeFeesUSD.StringFixed(2),
	)
	return n.Send(ctx, msg)
}
