package notifications

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/evolution"
	"github.com/feedlift/feedlift-backend/pkg/logger"
	"github.com/feedlift/feedlift-backend/pkg/push"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubNotificationsRepo struct {
	notifications []models.Notification
	subs          []models.PushSubscription
	prefs         *models.NotificationPreference
	user          *models.User

	deactivatedIDs  []uuid.UUID
	deactivatedAll  int
	deactivated     int64
	deletedNotifs   int64
	upsertedSub     *models.PushSubscription
	upsertedFields  map[string]any
	cleanupCutoffs  []time.Time
	createErr       error
	subsErr         error
	deactivateByErr error
}

func (r *stubNotificationsRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubNotificationsRepo) CreateNotification(ctx context.Context, n *models.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *stubNotificationsRepo) ListNotificationsSince(ctx context.Context, userID uuid.UUID, since time.Time, limit int) ([]models.Notification, error) {
	return r.notifications, nil
}

func (r *stubNotificationsRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return int64(len(r.notifications)), nil
}

func (r *stubNotificationsRepo) DeleteNotificationsBefore(ctx context.Context, userID *uuid.UUID, cutoff time.Time) (int64, error) {
	r.cleanupCutoffs = append(r.cleanupCutoffs, cutoff)
	return r.deletedNotifs, nil
}

func (r *stubNotificationsRepo) UpsertSubscription(ctx context.Context, sub *models.PushSubscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	r.upsertedSub = sub
	return nil
}

func (r *stubNotificationsRepo) ActiveSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	if r.subsErr != nil {
		return nil, r.subsErr
	}
	return r.subs, nil
}

func (r *stubNotificationsRepo) DeactivateSubscription(ctx context.Context, userID uuid.UUID, endpoint string) (int64, error) {
	r.deactivated++
	return 1, nil
}

func (r *stubNotificationsRepo) DeactivateAllSubscriptions(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.deactivatedAll++
	return int64(len(r.subs)), nil
}

func (r *stubNotificationsRepo) DeactivateSubscriptionByID(ctx context.Context, id uuid.UUID) error {
	if r.deactivateByErr != nil {
		return r.deactivateByErr
	}
	r.deactivatedIDs = append(r.deactivatedIDs, id)
	return nil
}

func (r *stubNotificationsRepo) DeactivateSubscriptionsInactiveSince(ctx context.Context, userID *uuid.UUID, cutoff time.Time) (int64, error) {
	r.cleanupCutoffs = append(r.cleanupCutoffs, cutoff)
	return r.deactivated, nil
}

func (r *stubNotificationsRepo) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreference, error) {
	if r.prefs == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.prefs, nil
}

func (r *stubNotificationsRepo) UpsertPreferences(ctx context.Context, userID uuid.UUID, fields map[string]any) error {
	r.upsertedFields = fields
	return nil
}

func (r *stubNotificationsRepo) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if r.user == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return r.user, nil
}

type stubPush struct {
	configured bool
	goneFor    map[string]bool
	err        error
	sent       []push.Target
}

func (p *stubPush) Configured() bool { return p.configured }

func (p *stubPush) Send(ctx context.Context, target push.Target, msg push.Message) error {
	if p.goneFor[target.Endpoint] {
		return push.ErrSubscriptionGone
	}
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, target)
	return nil
}

type stubWhatsApp struct {
	configured bool
	sentTo     []string
	err        error
}

func (w *stubWhatsApp) Configured() bool { return w.configured }

func (w *stubWhatsApp) SendText(ctx context.Context, phone, text string) (*evolution.SendResult, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.sentTo = append(w.sentTo, phone)
	if !w.configured {
		return &evolution.SendResult{Mocked: true}, nil
	}
	return &evolution.SendResult{MessageID: "msg-1"}, nil
}

func newTestDispatcher(t *testing.T, repo *stubNotificationsRepo, p *stubPush, w *stubWhatsApp) Dispatcher {
	t.Helper()
	d, err := NewDispatcher(DispatcherParams{
		Repo:     repo,
		Push:     p,
		WhatsApp: w,
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	return d
}

func activeSub(endpoint string) models.PushSubscription {
	return models.PushSubscription{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Endpoint: endpoint,
		P256dh:   "p256dh-key",
		Auth:     "auth-secret",
		IsActive: true,
	}
}

func TestDispatchAlwaysPersistsNotification(t *testing.T) {
	repo := &stubNotificationsRepo{}
	d := newTestDispatcher(t, repo, &stubPush{configured: true}, &stubWhatsApp{})

	result, err := d.Dispatch(context.Background(), DispatchInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeOrderCreated,
		Title:   "Pedido recebido",
		Message: "Seu pedido foi criado.",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.NotificationID == uuid.Nil {
		t.Fatal("expected notification id")
	}
	if len(repo.notifications) != 1 {
		t.Fatalf("expected 1 notification row, got %d", len(repo.notifications))
	}
	if result.Sent != 0 || result.Failed != 0 {
		t.Fatalf("no subscriptions means zero deliveries, got %+v", result)
	}
}

func TestDispatchSendsToAllSubscriptions(t *testing.T) {
	repo := &stubNotificationsRepo{subs: []models.PushSubscription{
		activeSub("https://push.example/a"),
		activeSub("https://push.example/b"),
	}}
	pushStub := &stubPush{configured: true}
	d := newTestDispatcher(t, repo, pushStub, &stubWhatsApp{})

	result, err := d.Dispatch(context.Background(), DispatchInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypePaymentUpdate,
		Title:   "Pagamento aprovado",
		Message: "Seu pagamento foi aprovado.",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Sent != 2 || result.Failed != 0 {
		t.Fatalf("expected 2 sends, got %+v", result)
	}
	if len(pushStub.sent) != 2 {
		t.Fatalf("expected push client called twice, got %d", len(pushStub.sent))
	}
}

func TestDispatchMockedWithoutCredentials(t *testing.T) {
	repo := &stubNotificationsRepo{subs: []models.PushSubscription{activeSub("https://push.example/a")}}
	d := newTestDispatcher(t, repo, &stubPush{configured: false}, &stubWhatsApp{})

	result, err := d.Dispatch(context.Background(), DispatchInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeSystem,
		Title:   "Aviso",
		Message: "Mensagem de teste.",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !result.Mocked {
		t.Fatal("expected mocked result without credentials")
	}
	if len(repo.notifications) != 1 {
		t.Fatal("notification row must exist even when delivery is mocked")
	}
}

func TestDispatchDeactivatesGoneSubscription(t *testing.T) {
	gone := activeSub("https://push.example/gone")
	ok := activeSub("https://push.example/ok")
	repo := &stubNotificationsRepo{subs: []models.PushSubscription{gone, ok}}
	pushStub := &stubPush{
		configured: true,
		goneFor:    map[string]bool{gone.Endpoint: true},
	}
	d := newTestDispatcher(t, repo, pushStub, &stubWhatsApp{})

	result, err := d.Dispatch(context.Background(), DispatchInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeOrderProgress,
		Title:   "Pedido atualizado",
		Message: "Seu pedido avançou.",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("expected 1 sent / 1 failed, got %+v", result)
	}
	if len(repo.deactivatedIDs) != 1 || repo.deactivatedIDs[0] != gone.ID {
		t.Fatalf("expected gone subscription deactivated, got %v", repo.deactivatedIDs)
	}
}

func TestDispatchSuppressedByPreferences(t *testing.T) {
	repo := &stubNotificationsRepo{
		subs: []models.PushSubscription{activeSub("https://push.example/a")},
		prefs: &models.NotificationPreference{
			PushEnabled:  true,
			OrderUpdates: false,
		},
	}
	pushStub := &stubPush{configured: true}
	d := newTestDispatcher(t, repo, pushStub, &stubWhatsApp{})

	result, err := d.Dispatch(context.Background(), DispatchInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeOrderCreated,
		Title:   "Pedido recebido",
		Message: "Seu pedido foi criado.",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Sent != 0 || len(pushStub.sent) != 0 {
		t.Fatal("order updates disabled must suppress the push")
	}
	if len(repo.notifications) != 1 {
		t.Fatal("in-app row is written even when push is suppressed")
	}

	// System notices still go out: only the order-update toggle is off.
	if _, err := d.Dispatch(context.Background(), DispatchInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeSystem,
		Title:   "Aviso",
		Message: "Mensagem.",
	}); err != nil {
		t.Fatalf("system dispatch: %v", err)
	}
	if len(pushStub.sent) != 1 {
		t.Fatal("system notification should still be delivered")
	}
}

func TestDispatchValidation(t *testing.T) {
	d := newTestDispatcher(t, &stubNotificationsRepo{}, &stubPush{}, &stubWhatsApp{})

	_, err := d.Dispatch(context.Background(), DispatchInput{Title: "x", Message: "y"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error without user, got %v", err)
	}

	_, err = d.Dispatch(context.Background(), DispatchInput{UserID: uuid.New()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error without title, got %v", err)
	}
}

func TestSendWhatsAppSkipsUserWithoutPhone(t *testing.T) {
	repo := &stubNotificationsRepo{user: &models.User{ID: uuid.New()}}
	wa := &stubWhatsApp{configured: true}
	d := newTestDispatcher(t, repo, &stubPush{}, wa)

	result, err := d.SendWhatsApp(context.Background(), repo.user.ID, "Olá!")
	if err != nil {
		t.Fatalf("send whatsapp: %v", err)
	}
	if !result.Mocked {
		t.Fatal("expected mocked result for user without phone")
	}
	if len(wa.sentTo) != 0 {
		t.Fatal("gateway must not be called without a phone")
	}
}

func TestSendWhatsAppRespectsPreference(t *testing.T) {
	phone := "5511999990000"
	repo := &stubNotificationsRepo{
		user:  &models.User{ID: uuid.New(), Phone: &phone},
		prefs: &models.NotificationPreference{WhatsAppEnabled: false, PushEnabled: true},
	}
	wa := &stubWhatsApp{configured: true}
	d := newTestDispatcher(t, repo, &stubPush{}, wa)

	result, err := d.SendWhatsApp(context.Background(), repo.user.ID, "Olá!")
	if err != nil {
		t.Fatalf("send whatsapp: %v", err)
	}
	if !result.Mocked || len(wa.sentTo) != 0 {
		t.Fatal("whatsapp disabled preference must suppress the send")
	}
}

func TestSendWhatsAppDelivers(t *testing.T) {
	phone := "5511999990000"
	repo := &stubNotificationsRepo{user: &models.User{ID: uuid.New(), Phone: &phone}}
	wa := &stubWhatsApp{configured: true}
	d := newTestDispatcher(t, repo, &stubPush{}, wa)

	result, err := d.SendWhatsApp(context.Background(), repo.user.ID, "Seu pedido chegou!")
	if err != nil {
		t.Fatalf("send whatsapp: %v", err)
	}
	if result.Mocked {
		t.Fatal("expected a real delivery")
	}
	if len(wa.sentTo) != 1 || wa.sentTo[0] != phone {
		t.Fatalf("expected send to %s, got %v", phone, wa.sentTo)
	}
}

func TestSendWhatsAppUserNotFound(t *testing.T) {
	d := newTestDispatcher(t, &stubNotificationsRepo{}, &stubPush{}, &stubWhatsApp{})
	_, err := d.SendWhatsApp(context.Background(), uuid.New(), "Olá!")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDispatchPersistFailure(t *testing.T) {
	repo := &stubNotificationsRepo{createErr: errors.New("db down")}
	d := newTestDispatcher(t, repo, &stubPush{}, &stubWhatsApp{})

	_, err := d.Dispatch(context.Background(), DispatchInput{
		UserID:  uuid.New(),
		Type:    enums.NotificationTypeSystem,
		Title:   "Aviso",
		Message: "Mensagem.",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
