package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-32-bytes-long!!!")

func makeToken(subject string, exp time.Time) string {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := tok.SignedString(testSecret)
	return signed
}

func newVerifier() JWTVerifier { return JWTVerifier{Secret: testSecret} }

// ─── JWTVerifier tests ──────────────────────────────────────────────────────

func TestJWTVerifier_ValidToken(t *testing.T) {
	tok := makeToken("42", time.Now().Add(time.Hour))
	claims, err := newVerifier().Parse(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	uid, err := claims.UserID()
	if err != nil || uid != 42 {
		t.Fatalf("expected user 42, got %d (%v)", uid, err)
	}
}

func TestJWTVerifier_ExpiredToken(t *testing.T) {
	tok := makeToken("1", time.Now().Add(-time.Hour))
	if _, err := newVerifier().Parse(tok); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTVerifier_WrongSecret(t *testing.T) {
	tok := makeToken("1", time.Now().Add(time.Hour))
	if _, err := (JWTVerifier{Secret: []byte("wrong-secret")}).Parse(tok); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestJWTVerifier_TamperedPayload(t *testing.T) {
	tok := makeToken("1", time.Now().Add(time.Hour))
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatal("expected 3 JWT parts")
	}
	tampered := parts[0] + ".dGFtcGVyZWQ." + parts[2]
	if _, err := newVerifier().Parse(tampered); err == nil {
		t.Fatal("expected error for tampered token")
	}
}

func TestClaims_NonNumericSubject(t *testing.T) {
	for _, sub := range []string{"", "user-1", "0", "-5"} {
		c := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}
		if _, err := c.UserID(); err == nil {
			t.Fatalf("subject %q: expected error", sub)
		}
	}
}

func TestIssue_RoundTrip(t *testing.T) {
	v := newVerifier()
	tok, err := v.Issue(7, time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	uid, err := v.Authenticate("Bearer " + tok)
	if err != nil || uid != 7 {
		t.Fatalf("expected user 7, got %d (%v)", uid, err)
	}
}

// ─── RequireUser middleware tests ────────────────────────────────────────────

func callRequireUser(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	RequireUser(newVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strconv.FormatInt(uid, 10)))
	})).ServeHTTP(rr, req)
	return rr
}

func TestRequireUser_ValidBearer(t *testing.T) {
	tok := makeToken("42", time.Now().Add(time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)

	rr := callRequireUser(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Body.String() != "42" {
		t.Fatalf("expected '42' in body, got %q", rr.Body.String())
	}
}

func TestRequireUser_Rejects(t *testing.T) {
	tests := map[string]string{
		"missing":     "",
		"basic":       "Basic dXNlcjpwYXNz",
		"invalid":     "Bearer invalid.token.here",
		"expired":     "Bearer " + makeToken("1", time.Now().Add(-time.Hour)),
		"non-numeric": "Bearer " + makeToken("user-1", time.Now().Add(time.Hour)),
	}
	for name, header := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := callRequireUser(req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "UNAUTHORIZED") {
			t.Fatalf("%s: expected error envelope, got %q", name, rr.Body.String())
		}
	}
}

func TestUserIDFromContext(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user in empty context")
	}
	if _, ok := UserIDFromContext(WithUserID(context.Background(), 0)); ok {
		t.Fatal("expected zero id to be rejected")
	}
	uid, ok := UserIDFromContext(WithUserID(context.Background(), 9))
	if !ok || uid != 9 {
		t.Fatalf("expected 9, got %d", uid)
	}
}
