package identity

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestVerifier(t *testing.T) *TokenVerifier {
	t.Helper()
	v, err := NewTokenVerifier(testSecret, "stepwise-test")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	return v
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenVerifier_ShortSecret(t *testing.T) {
	if _, err := NewTokenVerifier("short", ""); err == nil {
		t.Fatal("NewTokenVerifier() should reject secrets shorter than 16 chars")
	}
}

// =========================================================================
// ISSUE / VERIFY
// =========================================================================

func TestVerify_RoundTripCarriesClaims(t *testing.T) {
	v := newTestVerifier(t)
	in := Identity{ID: "user_2abc", Plans: []string{"pro"}, SessionID: "sess_1"}

	token, err := v.Issue(in, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("Issue() token %q is not a JWT", token)
	}

	got, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.ID != in.ID || got.SessionID != in.SessionID {
		t.Errorf("Verify() = %+v, want %+v", got, in)
	}
	if len(got.Plans) != 1 || got.Plans[0] != "pro" {
		t.Errorf("Plans = %v, want [pro]", got.Plans)
	}
}

func TestVerify_Rejects(t *testing.T) {
	v := newTestVerifier(t)

	expired, _ := v.Issue(Identity{ID: "user_1"}, -time.Second)
	noSubject, _ := v.Issue(Identity{}, time.Hour)

	other, _ := NewTokenVerifier("another-secret-32-chars-long!!!!", "stepwise-test")
	foreignSig, _ := other.Issue(Identity{ID: "user_1"}, time.Hour)

	wrongIssuer, _ := NewTokenVerifier(testSecret, "someone-else")
	foreignIss, _ := wrongIssuer.Issue(Identity{ID: "user_1"}, time.Hour)

	valid, _ := v.Issue(Identity{ID: "user_1"}, time.Hour)
	tampered := valid[:len(valid)-3] + "xxx"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"expired", expired},
		{"no subject", noSubject},
		{"wrong secret", foreignSig},
		{"wrong issuer", foreignIss},
		{"tampered signature", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); err == nil {
				t.Errorf("Verify(%s) should have failed", tt.name)
			}
		})
	}
}

func TestVerify_NoIssuerConfiguredAcceptsAny(t *testing.T) {
	issuer, _ := NewTokenVerifier(testSecret, "provider")
	token, _ := issuer.Issue(Identity{ID: "user_1"}, time.Hour)

	lenient, _ := NewTokenVerifier(testSecret, "")
	if _, err := lenient.Verify(token); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

// =========================================================================
// ENTITLEMENTS
// =========================================================================

func TestHasEntitlement(t *testing.T) {
	id := Identity{ID: "user_1", Plans: []string{" Max Plan ", "beta"}}

	tests := []struct {
		tag  string
		want bool
	}{
		{"max plan", true},
		{"MAX PLAN", true},
		{"beta", true},
		{"max", false},
		{"pro", false},
	}
	for _, tt := range tests {
		if got := id.HasEntitlement(tt.tag); got != tt.want {
			t.Errorf("HasEntitlement(%q) = %v, want %v", tt.tag, got, tt.want)
		}
	}
}
