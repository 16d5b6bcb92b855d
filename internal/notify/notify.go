// Package notify posts best-effort change events to an external webhook so
// UIs can refresh. Delivery failures are logged and swallowed; no caller
// ever waits on or fails because of a notification.
package notify

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Event names mirror the history diff actions.
const (
	EventCreated  = "buyer.created"
	EventUpdated  = "buyer.updated"
	EventDeleted  = "buyer.deleted"
	EventImported = "buyers.imported"
)

type payload struct {
	Event   string `json:"event"`
	BuyerID string `json:"buyerId,omitempty"`
	Count   int    `json:"count,omitempty"`
	At      string `json:"at"`
}

// Notifier delivers events to a single configured webhook URL.
// A Notifier with an empty URL is valid and does nothing.
type Notifier struct {
	client *resty.Client
	url    string
	log    *zap.Logger
}

func NewNotifier(url string, timeout time.Duration, log *zap.Logger) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0)
	return &Notifier{client: client, url: url, log: log}
}

// Publish sends one event. For imports, count carries the inserted total
// and buyerID is empty.
func (n *Notifier) Publish(event, buyerID string, count int) {
	if n == nil || n.url == "" {
		return
	}

	body := payload{
		Event:   event,
		BuyerID: buyerID,
		Count:   count,
		At:      time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		resp, err := n.client.R().
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(n.url)
		if err != nil {
			n.log.Warn("webhook delivery failed", zap.String("event", event), zap.Error(err))
			return
		}
		if resp.IsError() {
			n.log.Warn("webhook returned error status",
				zap.String("event", event), zap.Int("status", resp.StatusCode()))
		}
	}()
}
