package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// BotNotifier delivers user-facing event notifications to the bot endpoint.
// Delivery is fire-and-forget: failures are logged and never surface to the
// operation that produced the event.
type BotNotifier struct {
	endpoint   string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewBotNotifier creates a notifier posting to the given bot endpoint. An
// empty endpoint disables delivery (events are only logged).
func NewBotNotifier(endpoint string, timeout time.Duration, log zerolog.Logger) *BotNotifier {
	return &BotNotifier{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type notification struct {
	UserID  int64                  `json:"user_id"`
	Event   string                 `json:"event"`
	Details map[string]interface{} `json:"details,omitempty"`
	SentAt  time.Time              `json:"sent_at"`
}

// Notify sends the event in a background goroutine. The caller's context is
// not used for the send: the notification should outlive the request.
func (n *BotNotifier) Notify(_ context.Context, userID int64, event string, details map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.httpClient.Timeout)
		defer cancel()

		if err := n.send(ctx, userID, event, details); err != nil {
			n.log.Warn().Err(err).Int64("user_id", userID).Str("event", event).Msg("notification delivery failed")
			return
		}
		n.log.Debug().Int64("user_id", userID).Str("event", event).Msg("notification delivered")
	}()
}

func (n *BotNotifier) send(ctx context.Context, userID int64, event string, details map[string]interface{}) error {
	if n.endpoint == "" {
		n.log.Info().Int64("user_id", userID).Str("event", event).Msg("notification (no endpoint configured)")
		return nil
	}

	body, err := json.Marshal(notification{
		UserID:  userID,
		Event:   event,
		Details: details,
		SentAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.log.Warn().Int("status", resp.StatusCode).Str("event", event).Msg("notification endpoint rejected event")
	}
	return nil
}
