package twitch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const signaturePrefix = "sha256="

// Verifier checks Twitch-Eventsub-Message-Signature values against the shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign returns the signature header value for a message.
func (v *Verifier) Sign(messageID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the raw body. The comparison is constant time.
func (v *Verifier) Verify(messageID, timestamp, signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	return hmac.Equal([]byte(v.Sign(messageID, timestamp, body)), []byte(signature))
}
