package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feedlift/feedlift-backend/pkg/config"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

var errClientLoggerRequired = errors.New("evolution logger is required")

// Client wraps the Evolution API gateway used for outbound WhatsApp messages.
// An unconfigured client (no base URL or API key) is valid: sends become
// no-ops so that missing delivery infrastructure never hard-fails callers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	instance   string
	logger     *logger.Logger
}

// SendResult reports the outcome of one outbound message.
type SendResult struct {
	MessageID string
	Mocked    bool
}

// NewClient builds the gateway wrapper.
func NewClient(ctx context.Context, cfg config.WhatsAppConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errClientLoggerRequired
	}
	instance := strings.TrimSpace(cfg.Instance)
	if instance == "" {
		instance = "feedlift"
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		instance:   instance,
		logger:     logg,
	}
	if c.Configured() {
		logg.Info(ctx, "evolution client initialized")
	} else {
		logg.Warn(ctx, "evolution client running in mock mode (no credentials)")
	}
	return c, nil
}

// Configured reports whether real sends are possible.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// SendText delivers a text message to the given phone number. The number is
// normalized before sending. Unconfigured clients return a mocked result.
func (c *Client) SendText(ctx context.Context, phone, text string) (*SendResult, error) {
	number := NormalizePhone(phone)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}

	if !c.Configured() {
		logCtx := c.logger.WithField(ctx, "phone", "[REDACTED]")
		c.logger.Info(logCtx, "whatsapp send skipped (mock mode)")
		return &SendResult{Mocked: true}, nil
	}

	body, err := json.Marshal(sendTextRequest{
		Number: number,
		Text:   text,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode whatsapp request")
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, c.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build whatsapp request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "whatsapp send failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "whatsapp send read body")
	}
	if resp.StatusCode >= 400 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("whatsapp gateway status %d", resp.StatusCode))
	}

	var parsed sendTextResponse
	_ = json.Unmarshal(raw, &parsed)

	logCtx := c.logger.WithFields(ctx, map[string]any{
		"message_id": parsed.Key.ID,
		"status":     resp.StatusCode,
	})
	c.logger.Info(logCtx, "whatsapp message sent")

	return &SendResult{MessageID: parsed.Key.ID}, nil
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type sendTextResponse struct {
	Key struct {
		ID string `json:"id"`
	} `json:"key"`
	Status string `json:"status"`
}
