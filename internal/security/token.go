package security

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"domus-api/internal/model"
)

// accessClaims is the wire form of an access token payload.
type accessClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// TokenSigner builds and signs access tokens with the Ed25519 private key.
// It is the only component that holds the private key.
type TokenSigner struct {
	privateKey ed25519.PrivateKey
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

func NewTokenSigner(privateKey ed25519.PrivateKey, issuer string, audience string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{
		privateKey: privateKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Sign returns an encoded access token for the user. Each call generates a
// fresh jti, so two tokens for the same user are never identical.
func (s *TokenSigner) Sign(user model.User) (string, error) {
	now := s.now().UTC()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// TokenVerifier validates access tokens against the Ed25519 public key. It
// runs on the request hot path and never touches storage.
type TokenVerifier struct {
	publicKey ed25519.PublicKey
	issuer    string
	audience  string
	now       func() time.Time
}

func NewTokenVerifier(publicKey ed25519.PublicKey, issuer string, audience string) *TokenVerifier {
	return &TokenVerifier{
		publicKey: publicKey,
		issuer:    issuer,
		audience:  audience,
		now:       time.Now,
	}
}

// Verify parses the token, checks the signature, and validates issuer,
// audience, and the [iat, exp) window. Claim validation is done manually so
// signature failures and lifetime failures map to distinct internal errors.
func (v *TokenVerifier) Verify(tokenString string) (*model.AuthClaims, error) {
	var parsed accessClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		return v.publicKey, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, mapParseError(err)
	}

	if parsed.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", model.ErrTokenInvalid)
	}
	if !containsAudience(parsed.Audience, v.audience) {
		return nil, fmt.Errorf("%w: audience mismatch", model.ErrTokenInvalid)
	}

	now := v.now().UTC()
	if parsed.IssuedAt == nil || parsed.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing lifetime claims", model.ErrTokenInvalid)
	}
	if now.Before(parsed.IssuedAt.Time) {
		return nil, fmt.Errorf("%w: issued in the future", model.ErrTokenInvalid)
	}
	if !now.Before(parsed.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: expired", model.ErrTokenInvalid)
	}

	if parsed.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", model.ErrTokenInvalid)
	}
	if _, err := uuid.Parse(parsed.Subject); err != nil {
		return nil, fmt.Errorf("%w: malformed subject", model.ErrTokenInvalid)
	}

	return &model.AuthClaims{
		UserID:    parsed.Subject,
		Email:     parsed.Email,
		FirstName: parsed.FirstName,
		LastName:  parsed.LastName,
		TokenID:   parsed.ID,
	}, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %s", model.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %s", model.ErrUntrustedToken, err)
	default:
		return fmt.Errorf("%w: %s", model.ErrTokenInvalid, err)
	}
}

func containsAudience(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}
