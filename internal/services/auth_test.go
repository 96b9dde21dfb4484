package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/completion-engine/internal/platform/ctxutil"
)

func mint(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTVerifier(t *testing.T) {
	secret := "test-secret"
	v, err := NewJWTVerifier(nil, secret, "identity")
	if err != nil {
		t.Fatalf("NewJWTVerifier: %v", err)
	}
	learner := uuid.New()
	valid := Claims{
		Role: "Operator",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   learner.String(),
			Issuer:    "identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	ctx, err := v.SetContextFromToken(context.Background(), mint(t, jwt.SigningMethodHS256, []byte(secret), valid))
	if err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.LearnerID != learner || rd.Role != RoleOperator {
		t.Fatalf("request data: %+v", rd)
	}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	badSubject := valid
	badSubject.Subject = "not-a-uuid"
	noExpiry := valid
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "abc.def.ghi"},
		{"wrong secret", mint(t, jwt.SigningMethodHS256, []byte("other"), valid)},
		{"wrong algorithm", mint(t, jwt.SigningMethodHS512, []byte(secret), valid)},
		{"expired", mint(t, jwt.SigningMethodHS256, []byte(secret), expired)},
		{"wrong issuer", mint(t, jwt.SigningMethodHS256, []byte(secret), wrongIssuer)},
		{"bad subject", mint(t, jwt.SigningMethodHS256, []byte(secret), badSubject)},
		{"no expiry", mint(t, jwt.SigningMethodHS256, []byte(secret), noExpiry)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.SetContextFromToken(context.Background(), tc.token); err == nil {
				t.Fatalf("expected token to be rejected")
			}
		})
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	if _, err := NewJWTVerifier(nil, " ", ""); err == nil {
		t.Fatalf("expected error without secret")
	}
}
