package mercadopago

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentCreateParams carries the fields needed to open a payment intent.
type PaymentCreateParams struct {
	TransactionAmount decimal.Decimal
	Description       string
	PaymentMethodID   string
	ExternalReference string
	NotificationURL   string
	PayerEmail        string
	PayerFirstName    string
	PayerLastName     string
	IdempotencyKey    string
}

func (p PaymentCreateParams) validate() error {
	if p.TransactionAmount.LessThanOrEqual(decimal.Zero) {
		return errors.New("transaction amount must be positive")
	}
	if strings.TrimSpace(p.PayerEmail) == "" {
		return errors.New("payer email is required")
	}
	if strings.TrimSpace(p.ExternalReference) == "" {
		return errors.New("external reference is required")
	}
	return nil
}

func (p PaymentCreateParams) toRequest() paymentRequest {
	method := strings.TrimSpace(p.PaymentMethodID)
	if method == "" {
		method = "pix"
	}
	return paymentRequest{
		TransactionAmount: p.TransactionAmount,
		Description:       p.Description,
		PaymentMethodID:   method,
		ExternalReference: p.ExternalReference,
		NotificationURL:   p.NotificationURL,
		Payer: paymentPayer{
			Email:     p.PayerEmail,
			FirstName: p.PayerFirstName,
			LastName:  p.PayerLastName,
			// The provider requires an identification block even for pix;
			// the storefront does not collect documents, so a placeholder
			// CPF is sent. Known limitation.
			Identification: payerIdentification{
				Type:   "CPF",
				Number: "19119119100",
			},
		},
	}
}

type paymentRequest struct {
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Description       string          `json:"description,omitempty"`
	PaymentMethodID   string          `json:"payment_method_id"`
	ExternalReference string          `json:"external_reference"`
	NotificationURL   string          `json:"notification_url,omitempty"`
	Payer             paymentPayer    `json:"payer"`
}

type paymentPayer struct {
	Email          string              `json:"email"`
	FirstName      string              `json:"first_name,omitempty"`
	LastName       string              `json:"last_name,omitempty"`
	Identification payerIdentification `json:"identification"`
}

type payerIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// Payment is the provider's payment resource, trimmed to the fields the
// platform reads.
type Payment struct {
	ID                 int64               `json:"id"`
	Status             string              `json:"status"`
	StatusDetail       string              `json:"status_detail"`
	ExternalReference  string              `json:"external_reference"`
	TransactionAmount  decimal.Decimal     `json:"transaction_amount"`
	PaymentMethodID    string              `json:"payment_method_id"`
	PointOfInteraction *pointOfInteraction `json:"point_of_interaction,omitempty"`
	Raw                json.RawMessage     `json:"-"`
}

type pointOfInteraction struct {
	TransactionData *transactionData `json:"transaction_data,omitempty"`
}

type transactionData struct {
	QRCode       string `json:"qr_code,omitempty"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
	TicketURL    string `json:"ticket_url,omitempty"`
}

// QRCode returns the pix copy-paste code when present.
func (p *Payment) QRCode() string {
	if p == nil || p.PointOfInteraction == nil || p.PointOfInteraction.TransactionData == nil {
		return ""
	}
	return p.PointOfInteraction.TransactionData.QRCode
}

// TicketURL returns the hosted checkout/ticket link when present.
func (p *Payment) TicketURL() string {
	if p == nil || p.PointOfInteraction == nil || p.PointOfInteraction.TransactionData == nil {
		return ""
	}
	return p.PointOfInteraction.TransactionData.TicketURL
}
