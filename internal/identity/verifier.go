package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Verifier authenticates bearer tokens. Institution tokens are checked
// against the institution API first; anything else is treated as a
// Supabase session JWT.
type Verifier struct {
	client    *Client
	issuer    string
	jwtSecret []byte
	now       func() time.Time
	logger    *zap.Logger
}

// VerifierOptions configures a Verifier.
type VerifierOptions struct {
	// SupabaseURL enables Supabase tokens issued by {SupabaseURL}/auth/v1.
	SupabaseURL string
	// JWTSecret, when set, is used to check HS256 signatures. Without it only
	// issuer and expiry are checked.
	JWTSecret string
	Now       func() time.Time
}

// NewVerifier creates a verifier. client may be nil to disable the
// institution check.
func NewVerifier(client *Client, opts VerifierOptions, logger *zap.Logger) *Verifier {
	v := &Verifier{client: client, now: opts.Now, logger: logger}
	if opts.SupabaseURL != "" {
		v.issuer = strings.TrimRight(opts.SupabaseURL, "/") + "/auth/v1"
	}
	if opts.JWTSecret != "" {
		v.jwtSecret = []byte(opts.JWTSecret)
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v
}

// Verify returns the user for token, or an error wrapping ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, token string) (*User, error) {
	token = BareToken(token)
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", ErrUnauthorized)
	}

	if v.client != nil {
		user, err := v.client.Profile(ctx, token)
		if err == nil {
			return user, nil
		}
		v.logger.Debug("institution token check failed", zap.Error(err))
	}

	if v.issuer == "" {
		return nil, fmt.Errorf("token rejected: %w", ErrUnauthorized)
	}
	user, err := v.verifySupabase(token)
	if err != nil {
		v.logger.Info("supabase token rejected", zap.Error(err))
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}
	return user, nil
}

type supabaseClaims struct {
	jwt.RegisteredClaims
	Email       string                 `json:"email"`
	AppMetadata map[string]interface{} `json:"app_metadata"`
}

func (v *Verifier) verifySupabase(token string) (*User, error) {
	claims := &supabaseClaims{}
	opts := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}

	if v.jwtSecret != nil {
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			return v.jwtSecret, nil
		}, append(opts, jwt.WithValidMethods([]string{"HS256"}))...)
		if err != nil {
			return nil, err
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, err
		}
		if err := jwt.NewValidator(opts...).Validate(claims); err != nil {
			return nil, err
		}
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	source := "oauth"
	if p, ok := claims.AppMetadata["provider"].(string); ok && p != "" {
		source = p
	}
	username := claims.Email
	if username == "" {
		username = claims.Subject
	}
	return &User{
		ID:       claims.Subject,
		Username: username,
		Email:    claims.Email,
		Source:   source,
	}, nil
}
