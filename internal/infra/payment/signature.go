package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifyWebhookSignature checks MercadoPago's x-signature header:
//
//	x-signature: ts=<unix>,v1=<hex hmac>
//
// where the HMAC-SHA256 manifest is "id:<dataID>;request-id:<requestID>;ts:<ts>;"
// keyed with the webhook secret. dataID must be lowercased per the gateway docs.
func VerifyWebhookSignature(secret, signatureHeader, requestID, dataID string) bool {
	if secret == "" || signatureHeader == "" {
		return false
	}

	var ts, v1 string
	for _, part := range strings.Split(signatureHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "ts":
			ts = strings.TrimSpace(v)
		case "v1":
			v1 = strings.TrimSpace(v)
		}
	}
	if ts == "" || v1 == "" {
		return false
	}

	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", strings.ToLower(dataID), requestID, ts)
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(manifest))
	expected := hex.EncodeToString(h.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(v1)))
}
