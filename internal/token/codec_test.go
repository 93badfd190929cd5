package token

import (
	"strings"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", 0)

	for level := 1; level <= 10; level++ {
		tok := codec.Issue(level, "Q"+string(rune('0'+level%10)))
		payload, ok := codec.Verify(tok)
		if !ok {
			t.Fatalf("level %d: expected valid token", level)
		}
		if payload.Level != level {
			t.Fatalf("level %d: payload level %d", level, payload.Level)
		}
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	codec := NewCodec("test-secret", 0)
	tok := codec.Issue(3, "Q3")

	// Flip every single character in turn; no mutation may verify.
	for i := 0; i < len(tok); i++ {
		mutated := []byte(tok)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		if string(mutated) == tok {
			continue
		}
		if _, ok := codec.Verify(string(mutated)); ok {
			t.Fatalf("mutation at %d verified", i)
		}
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	codec := NewCodec("test-secret", 0)

	for _, tok := range []string{"", "no-dot", "a.b.c", "!!!.deadbeef", "Zm9v."} {
		if _, ok := codec.Verify(tok); ok {
			t.Fatalf("expected %q to be invalid", tok)
		}
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok := NewCodec("secret-a", 0).Issue(1, "Q1")
	if _, ok := NewCodec("secret-b", 0).Verify(tok); ok {
		t.Fatalf("token signed with a different secret verified")
	}
}

func TestMaxAgeExpiry(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	codec := NewCodecWithClock("test-secret", time.Hour, func() time.Time { return now })

	tok := codec.Issue(2, "Q2")
	if _, ok := codec.Verify(tok); !ok {
		t.Fatalf("fresh token rejected")
	}

	now = base.Add(2 * time.Hour)
	if _, ok := codec.Verify(tok); ok {
		t.Fatalf("expired token accepted")
	}
}

func TestZeroMaxAgeNeverExpires(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	codec := NewCodecWithClock("test-secret", 0, func() time.Time { return now })

	tok := codec.Issue(2, "Q2")
	now = base.AddDate(1, 0, 0)
	if _, ok := codec.Verify(tok); !ok {
		t.Fatalf("token expired despite zero max age")
	}
}

func TestTokenShape(t *testing.T) {
	tok := NewCodec("test-secret", 0).Issue(1, "Q1")
	if strings.Count(tok, ".") != 1 {
		t.Fatalf("expected payload.signature shape, got %q", tok)
	}
}
