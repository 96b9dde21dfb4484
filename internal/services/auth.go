package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/completion-engine/internal/platform/ctxutil"
	"github.com/yungbote/completion-engine/internal/platform/logger"
)

const RoleOperator = "operator"

// Claims are the access token claims the engine reads. Tokens are minted by the
// identity service; the engine only verifies them.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type TokenVerifier interface {
	// SetContextFromToken verifies tokenString and attaches the caller to ctx.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type jwtVerifier struct {
	log    *logger.Logger
	secret []byte
	issuer string
}

func NewJWTVerifier(log *logger.Logger, secret, issuer string) (TokenVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &jwtVerifier{
		log:    log.With("service", "JWTVerifier"),
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
	}, nil
}

func (v *jwtVerifier) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, errors.New("missing token")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return ctx, errors.New("invalid or expired token")
	}
	learnerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid learner id in token: %w", err)
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{
		TokenString: tokenString,
		LearnerID:   learnerID,
		Role:        strings.ToLower(strings.TrimSpace(claims.Role)),
	}), nil
}
