package mercadopago

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"testing"

	"github.com/feedlift/feedlift-backend/pkg/config"
	pkgerrors "github.com/feedlift/feedlift-backend/pkg/errors"
	"github.com/feedlift/feedlift-backend/pkg/logger"
)

func testClient(t *testing.T, secret string) *Client {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	c, err := NewClient(context.Background(), config.MercadoPagoConfig{
		AccessToken:   "test-token",
		WebhookSecret: secret,
	}, logg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func signManifest(secret, dataID, requestID, ts string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	const secret = "whsec-test"
	c := testClient(t, secret)

	v1 := signManifest(secret, "123456789", "req-1", "1700000000")
	header := fmt.Sprintf("ts=1700000000,v1=%s", v1)
	if err := c.VerifyWebhookSignature(header, "req-1", "123456789"); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyWebhookSignatureLowercasesDataID(t *testing.T) {
	const secret = "whsec-test"
	c := testClient(t, secret)

	v1 := signManifest(secret, "abc123def", "req-1", "1700000000")
	header := fmt.Sprintf("ts=1700000000,v1=%s", v1)
	if err := c.VerifyWebhookSignature(header, "req-1", "ABC123DEF"); err != nil {
		t.Fatalf("mixed-case data id rejected: %v", err)
	}
}

func TestVerifyWebhookSignatureRejectsTampering(t *testing.T) {
	const secret = "whsec-test"
	c := testClient(t, secret)

	v1 := signManifest(secret, "123456789", "req-1", "1700000000")
	header := fmt.Sprintf("ts=1700000000,v1=%s", v1)

	err := c.VerifyWebhookSignature(header, "req-1", "987654321")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for mismatched data id, got %v", err)
	}

	err = c.VerifyWebhookSignature("ts=1700000000", "req-1", "123456789")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for missing v1, got %v", err)
	}
}

func TestVerifyWebhookSignatureSkippedWithoutSecret(t *testing.T) {
	c := testClient(t, "")
	if err := c.VerifyWebhookSignature("garbage", "req-1", "123"); err != nil {
		t.Fatalf("verification must be skipped without a secret: %v", err)
	}
}

func TestParseSignatureHeader(t *testing.T) {
	ts, v1 := parseSignatureHeader("ts=1700000000, v1=deadbeef")
	if ts != "1700000000" || v1 != "deadbeef" {
		t.Fatalf("parse = %q, %q", ts, v1)
	}

	ts, v1 = parseSignatureHeader("")
	if ts != "" || v1 != "" {
		t.Fatalf("empty header should parse to empty parts, got %q %q", ts, v1)
	}
}
