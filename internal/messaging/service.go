package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/feedlift/feedlift-backend/pkg/db"
	"github.com/feedlift/feedlift-backend/pkg/db/models"
	"github.com/feedlift/feedlift-backend/pkg/enums"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/evolution"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

var (
	orderInquiryRe = regexp.MustCompile(`(?i)\b(pedido|compra|status|rastrear|andamento)\b`)
	supportRe      = regexp.MustCompile(`(?i)\b(ajuda|problema|suporte|reclama[cç][aã]o|erro)\b`)
	emailRe        = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

type orderFinder interface {
	RecentByEmail(ctx context.Context, email string, limit int) ([]models.Order, error)
}

type replySender interface {
	SendText(ctx context.Context, phone, text string) (*evolution.SendResult, error)
}

// WebhookEvent is the provider envelope for one gateway callback.
type WebhookEvent struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
}

// WebhookResult summarizes what the handler did with one callback.
type WebhookResult struct {
	Event     string `json:"event"`
	Processed bool   `json:"processed"`
	Replied   bool   `json:"replied"`
}

// Service handles inbound gateway callbacks: persists messages, classifies
// them, and answers order inquiries with a status digest.
type Service interface {
	HandleWebhook(ctx context.Context, event WebhookEvent) (*WebhookResult, error)
}

type service struct {
	repo   Repository
	orders orderFinder
	sender replySender
	logg   *logger.Logger
}

// ServiceParams wires the messaging service dependencies.
type ServiceParams struct {
	Repo   Repository
	Orders orderFinder
	Sender replySender
	Logger *logger.Logger
}

// NewService builds the inbound messaging service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("messaging repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order finder required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("reply sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   params.Repo,
		orders: params.Orders,
		sender: params.Sender,
		logg:   params.Logger,
	}, nil
}

// inboundMessage mirrors the gateway's messages.upsert data shape.
type inboundMessage struct {
	Key struct {
		RemoteJID string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	PushName string `json:"pushName"`
	Message  struct {
		Conversation        string `json:"conversation"`
		ExtendedTextMessage struct {
			Text string `json:"text"`
		} `json:"extendedTextMessage"`
	} `json:"message"`
}

func (m inboundMessage) text() string {
	if m.Message.Conversation != "" {
		return m.Message.Conversation
	}
	return m.Message.ExtendedTextMessage.Text
}

func (s *service) HandleWebhook(ctx context.Context, event WebhookEvent) (*WebhookResult, error) {
	result := &WebhookResult{Event: event.Event}
	logCtx := s.logg.WithField(ctx, "event", event.Event)

	switch event.Event {
	case "messages.upsert":
		return s.handleUpsert(logCtx, event, result)
	case "messages.update":
		s.logg.Info(logCtx, "message status update acknowledged")
		result.Processed = true
		return result, nil
	case "connection.update":
		s.logg.Info(logCtx, "gateway connection state changed")
		result.Processed = true
		return result, nil
	case "qr":
		s.logg.Info(logCtx, "gateway requested QR pairing")
		result.Processed = true
		return result, nil
	default:
		s.logg.Info(logCtx, "unhandled gateway event acknowledged")
		return result, nil
	}
}

func (s *service) handleUpsert(ctx context.Context, event WebhookEvent, result *WebhookResult) (*WebhookResult, error) {
	var msg inboundMessage
	if err := json.Unmarshal(event.Data, &msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode message payload")
	}

	text := strings.TrimSpace(msg.text())
	if msg.Key.FromMe || text == "" {
		s.logg.Info(ctx, "skipping self-sent or non-text message")
		result.Processed = true
		return result, nil
	}
	if msg.Key.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message id missing")
	}

	phone := evolution.NormalizePhone(evolution.JIDToPhone(msg.Key.RemoteJID))
	isOrderInquiry := orderInquiryRe.MatchString(text)
	isSupport := supportRe.MatchString(text)

	row := &models.WhatsAppMessage{
		ProviderMessageID: msg.Key.ID,
		PhoneNumber:       phone,
		Body:              text,
		Direction:         enums.MessageDirectionInbound,
		IsOrderInquiry:    isOrderInquiry,
		IsSupportRequest:  isSupport,
		RawPayload:        event.Data,
	}
	if name := strings.TrimSpace(msg.PushName); name != "" {
		row.SenderName = &name
	}

	if err := s.repo.Insert(ctx, row); err != nil {
		if db.IsUniqueViolation(err, "") {
			s.logg.Info(s.logg.WithField(ctx, "provider_message_id", msg.Key.ID),
				"duplicate message delivery ignored")
			result.Processed = true
			return result, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist message")
	}

	reply := s.composeReply(ctx, text, isOrderInquiry, isSupport)
	if reply == "" {
		result.Processed = true
		return result, nil
	}

	if sent, err := s.sender.SendText(ctx, phone, reply); err != nil {
		// Best-effort: the inbound message is already stored.
		s.logg.Error(ctx, "reply send failed", err)
	} else {
		result.Replied = true
		s.recordOutbound(ctx, phone, reply, sent)
	}

	result.Processed = true
	return result, nil
}

func (s *service) composeReply(ctx context.Context, text string, isOrderInquiry, isSupport bool) string {
	switch {
	case isOrderInquiry:
		return s.orderDigest(ctx, text)
	case isSupport:
		return "Recebemos sua mensagem! Nossa equipe de suporte vai responder em breve. " +
			"Se quiser consultar um pedido, envie o e-mail usado na compra."
	default:
		return "Olá! 👋 Para consultar o status de um pedido, envie uma mensagem com a palavra " +
			"\"pedido\" e o e-mail usado na compra."
	}
}

// orderDigest answers an order inquiry. Without an email in the text it asks
// for one; with an email it formats the three most recent orders.
func (s *service) orderDigest(ctx context.Context, text string) string {
	email := emailRe.FindString(text)
	if email == "" {
		return "Para localizar seus pedidos, envie o e-mail usado na compra."
	}

	orders, err := s.orders.RecentByEmail(ctx, email, 3)
	if err != nil {
		s.logg.Error(ctx, "order lookup for inquiry failed", err)
		return "Não conseguimos consultar seus pedidos agora. Tente novamente em alguns minutos."
	}
	if len(orders) == 0 {
		return fmt.Sprintf("Não encontramos pedidos para o e-mail %s. "+
			"Confira se o e-mail está correto.", email)
	}

	var b strings.Builder
	b.WriteString("Seus pedidos mais recentes:\n")
	for _, order := range orders {
		b.WriteString("\n")
		b.WriteString(formatOrderLine(order))
	}
	return b.String()
}

func formatOrderLine(order models.Order) string {
	name := "serviço"
	if order.Service != nil {
		name = order.Service.Name
	}
	shortID := order.ID.String()
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	return fmt.Sprintf("📦 #%s — %d× %s: %s (criado em %s)",
		shortID, order.Quantity, name,
		orderStatusLabel(order.Status),
		order.CreatedAt.Format("02/01/2006"))
}

func orderStatusLabel(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusPending:
		return "aguardando"
	case enums.OrderStatusPendingPayment, enums.OrderStatusProcessingPayment:
		return "aguardando pagamento"
	case enums.OrderStatusPaid:
		return "pago"
	case enums.OrderStatusPaymentFailed:
		return "pagamento recusado"
	case enums.OrderStatusProcessing:
		return "em processamento"
	case enums.OrderStatusInProgress:
		return "em andamento"
	case enums.OrderStatusCompleted:
		return "concluído"
	case enums.OrderStatusFailed:
		return "falhou"
	case enums.OrderStatusCancelled:
		return "cancelado"
	default:
		return status.String()
	}
}

func (s *service) recordOutbound(ctx context.Context, phone, text string, sent *evolution.SendResult) {
	providerID := sent.MessageID
	if providerID == "" {
		providerID = fmt.Sprintf("out-%s-%d", phone, time.Now().UnixNano())
	}
	row := &models.WhatsAppMessage{
		ProviderMessageID: providerID,
		PhoneNumber:       phone,
		Body:              text,
		Direction:         enums.MessageDirectionOutbound,
	}
	if err := s.repo.Insert(ctx, row); err != nil && !db.IsUniqueViolation(err, "") {
		s.logg.Error(ctx, "recording outbound message failed", err)
	}
}
