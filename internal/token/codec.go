package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Payload is the signed content of one level token. Each physical QR
// code carries exactly one issued token.
type Payload struct {
	Level    int    `json:"level"`
	QID      string `json:"qid"`
	IssuedAt int64  `json:"issuedAt"`
}

// Codec issues and verifies HMAC-signed level tokens. Tokens are
// base64(payload JSON) + "." + hex(HMAC-SHA256 over the base64 text).
// A zero maxAge means tokens never expire.
type Codec struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewCodec(secret string, maxAge time.Duration) *Codec {
	return &Codec{secret: []byte(secret), maxAge: maxAge, now: time.Now}
}

// NewCodecWithClock is test-only for deterministic issuedAt values.
func NewCodecWithClock(secret string, maxAge time.Duration, now func() time.Time) *Codec {
	return &Codec{secret: []byte(secret), maxAge: maxAge, now: now}
}

// Issue signs a token for the given level and question id.
func (c *Codec) Issue(level int, qid string) string {
	payload := Payload{Level: level, QID: qid, IssuedAt: c.now().UnixMilli()}
	raw, _ := json.Marshal(payload)
	encoded := base64.StdEncoding.EncodeToString(raw)
	return encoded + "." + c.sign(encoded)
}

// Verify checks the token's signature and decodes its payload. Any
// malformed or tampered input yields ok=false; forged tokens are an
// expected adversarial case, not an error path.
func (c *Codec) Verify(tok string) (Payload, bool) {
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return Payload{}, false
	}
	encoded, sig := parts[0], parts[1]

	expected := c.sign(encoded)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return Payload{}, false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, false
	}
	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Payload{}, false
	}

	if c.maxAge > 0 {
		issued := time.UnixMilli(payload.IssuedAt)
		if c.now().Sub(issued) > c.maxAge {
			return Payload{}, false
		}
	}
	return payload, true
}

func (c *Codec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
