package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/feedlift/feedlift-backend/pkg/config"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

var errPushLoggerRequired = errors.New("push logger is required")

// ErrSubscriptionGone signals a permanent delivery failure: the endpoint no
// longer exists and the subscription should be deactivated.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Target is one delivery endpoint with its encryption keys.
type Target struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// Message is the payload delivered to the service worker.
type Message struct {
	Title string          `json:"title"`
	Body  string          `json:"body"`
	Icon  string          `json:"icon,omitempty"`
	Tag   string          `json:"tag,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client sends web push messages using VAPID authentication. An unconfigured
// client (missing VAPID keys) reports Configured() == false and refuses sends.
type Client struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
	logger     *logger.Logger
}

// NewClient validates the VAPID configuration.
func NewClient(ctx context.Context, cfg config.WebPushConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errPushLoggerRequired
	}
	c := &Client{
		publicKey:  strings.TrimSpace(cfg.VAPIDPublicKey),
		privateKey: strings.TrimSpace(cfg.VAPIDPrivateKey),
		subscriber: strings.TrimSpace(cfg.Subscriber),
		ttl:        cfg.TTLSeconds,
		logger:     logg,
	}
	if c.ttl <= 0 {
		c.ttl = int((time.Hour).Seconds())
	}
	if c.Configured() {
		logg.Info(ctx, "web push client initialized")
	} else {
		logg.Warn(ctx, "web push client running in mock mode (no VAPID keys)")
	}
	return c, nil
}

// Configured reports whether real deliveries are possible.
func (c *Client) Configured() bool {
	return c != nil && c.publicKey != "" && c.privateKey != ""
}

// Send delivers one message to one subscription endpoint.
func (c *Client) Send(ctx context.Context, target Target, msg Message) error {
	if !c.Configured() {
		return pkgerrors.New(pkgerrors.CodeDependency, "web push credentials not configured")
	}
	if target.Endpoint == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "push endpoint is required")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode push payload")
	}

	sub := &webpush.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpush.Keys{
			P256dh: target.P256dh,
			Auth:   target.Auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             c.ttl,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "push delivery failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return pkgerrors.New(pkgerrors.CodeDependency,
			"push service status "+http.StatusText(resp.StatusCode))
	}
	return nil
}
