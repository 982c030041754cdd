package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/internal/audit"
	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/evolution"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/push"
)

type pushSender interface {
	Configured() bool
	Send(ctx context.Context, target push.Target, msg push.Message) error
}

type whatsappSender interface {
	Configured() bool
	SendText(ctx context.Context, phone, text string) (*evolution.SendResult, error)
}

// DispatchInput is one notification to deliver to one user.
type DispatchInput struct {
	UserID  uuid.UUID
	Type    enums.NotificationType
	Title   string
	Message string
	Icon    string
	Tag     string
	Payload json.RawMessage
}

// DispatchResult reports what actually happened. A zero Sent with Mocked set
// means the notification row exists but delivery infrastructure was absent.
type DispatchResult struct {
	NotificationID uuid.UUID `json:"notification_id"`
	Sent           int       `json:"sent"`
	Failed         int       `json:"failed"`
	Mocked         bool      `json:"mocked"`
}

// Dispatcher fans one notification out to the user's channels. Delivery is
// best-effort: an in-app Notification row is always written, and missing
// credentials or zero subscriptions are success cases, never errors.
type Dispatcher interface {
	Dispatch(ctx context.Context, input DispatchInput) (*DispatchResult, error)
	SendWhatsApp(ctx context.Context, userID uuid.UUID, text string) (*evolution.SendResult, error)
}

type dispatcher struct {
	repo     Repository
	push     pushSender
	whatsapp whatsappSender
	audit    audit.Recorder
	logg     *logger.Logger
}

// DispatcherParams wires the dispatcher dependencies.
type DispatcherParams struct {
	Repo     Repository
	Push     pushSender
	WhatsApp whatsappSender
	Audit    audit.Recorder
	Logger   *logger.Logger
}

// NewDispatcher builds the notification dispatcher.
func NewDispatcher(params DispatcherParams) (Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Push == nil {
		return nil, fmt.Errorf("push sender required")
	}
	if params.WhatsApp == nil {
		return nil, fmt.Errorf("whatsapp sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Audit == nil {
		params.Audit = audit.Noop()
	}
	return &dispatcher{
		repo:     params.Repo,
		push:     params.Push,
		whatsapp: params.WhatsApp,
		audit:    params.Audit,
		logg:     params.Logger,
	}, nil
}

func (d *dispatcher) Dispatch(ctx context.Context, input DispatchInput) (*DispatchResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Title == "" || input.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title and message required")
	}
	if !input.Type.IsValid() {
		input.Type = enums.NotificationTypeSystem
	}

	row := &models.Notification{
		UserID:  input.UserID,
		Type:    input.Type,
		Title:   input.Title,
		Message: input.Message,
		Payload: input.Payload,
	}
	if err := d.repo.CreateNotification(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist notification")
	}

	result := &DispatchResult{NotificationID: row.ID}
	logCtx := d.logg.WithUserID(ctx, input.UserID.String())

	if !d.pushAllowed(ctx, input) {
		d.logg.Info(logCtx, "push suppressed by user preferences")
		return result, nil
	}

	subs, err := d.repo.ActiveSubscriptions(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscriptions")
	}
	if len(subs) == 0 {
		d.logg.Info(logCtx, "no active push subscriptions; skipping delivery")
		return result, nil
	}

	if !d.push.Configured() {
		result.Mocked = true
		d.logg.Info(logCtx, "push delivery mocked (no credentials)")
		return result, nil
	}

	msg := push.Message{
		Title: input.Title,
		Body:  input.Message,
		Icon:  input.Icon,
		Tag:   input.Tag,
		Data:  input.Payload,
	}

	var sendErrs error
	for _, sub := range subs {
		err := d.push.Send(ctx, push.Target{
			Endpoint: sub.Endpoint,
			P256dh:   sub.P256dh,
			Auth:     sub.Auth,
		}, msg)
		if err == nil {
			result.Sent++
			continue
		}
		result.Failed++
		if errors.Is(err, push.ErrSubscriptionGone) {
			if dErr := d.repo.DeactivateSubscriptionByID(ctx, sub.ID); dErr != nil {
				d.logg.Error(logCtx, "deactivating dead subscription failed", dErr)
			}
			continue
		}
		sendErrs = multierr.Append(sendErrs, err)
	}
	if sendErrs != nil {
		d.logg.Error(logCtx, "some push deliveries failed", sendErrs)
	}

	d.audit.Record(ctx, audit.Entry{
		Endpoint:   "notifications/dispatch",
		Request:    map[string]any{"type": input.Type, "title": input.Title},
		Response:   result,
		StatusCode: 200,
		UserID:     &input.UserID,
	})

	d.logg.Info(d.logg.WithFields(logCtx, map[string]any{
		"sent":   result.Sent,
		"failed": result.Failed,
	}), "push notification dispatched")
	return result, nil
}

// pushAllowed consults the user's channel toggles. A missing preference row
// means every channel is enabled.
func (d *dispatcher) pushAllowed(ctx context.Context, input DispatchInput) bool {
	prefs, err := d.repo.GetPreferences(ctx, input.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			d.logg.Error(ctx, "preferences lookup failed", err)
		}
		return true
	}
	if !prefs.PushEnabled {
		return false
	}
	if isOrderUpdate(input.Type) && !prefs.OrderUpdates {
		return false
	}
	return true
}

func isOrderUpdate(t enums.NotificationType) bool {
	switch t {
	case enums.NotificationTypeOrderCreated,
		enums.NotificationTypePaymentUpdate,
		enums.NotificationTypeOrderProgress:
		return true
	}
	return false
}

// SendWhatsApp resolves the user's phone and pushes a text through the
// gateway. Missing phone numbers and disabled preferences are skipped
// quietly; only infrastructure failures surface as errors.
func (d *dispatcher) SendWhatsApp(ctx context.Context, userID uuid.UUID, text string) (*evolution.SendResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	user, err := d.repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.Phone == nil || *user.Phone == "" {
		d.logg.Info(d.logg.WithUserID(ctx, userID.String()), "user has no phone; whatsapp skipped")
		return &evolution.SendResult{Mocked: true}, nil
	}

	if prefs, err := d.repo.GetPreferences(ctx, userID); err == nil && !prefs.WhatsAppEnabled {
		d.logg.Info(d.logg.WithUserID(ctx, userID.String()), "whatsapp suppressed by user preferences")
		return &evolution.SendResult{Mocked: true}, nil
	}

	return d.whatsapp.SendText(ctx, *user.Phone, text)
}

// retention windows applied by Cleanup when the config carries zeros.
const (
	defaultSubscriptionRetention = 90 * 24 * time.Hour
	defaultNotificationRetention = 180 * 24 * time.Hour
)
