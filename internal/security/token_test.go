package security

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"domus-api/internal/model"
)

const (
	testIssuer   = "api.domus.jacksonc.dev"
	testAudience = "domus.jacksonc.dev"
)

func testKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return publicKey, privateKey
}

func testUser() model.User {
	return model.User{
		ID:        uuid.New(),
		Email:     "john.smith@example.com",
		FirstName: "John",
		LastName:  "Smith",
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	publicKey, privateKey := testKeypair(t)
	signer := NewTokenSigner(privateKey, testIssuer, testAudience, 30*time.Minute)
	verifier := NewTokenVerifier(publicKey, testIssuer, testAudience)

	user := testUser()
	token, err := signer.Sign(user)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, user.ID.String(), claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, user.FirstName, claims.FirstName)
	require.Equal(t, user.LastName, claims.LastName)
	require.NotEmpty(t, claims.TokenID)
}

func TestSignGeneratesUniqueTokenIDs(t *testing.T) {
	publicKey, privateKey := testKeypair(t)
	signer := NewTokenSigner(privateKey, testIssuer, testAudience, 30*time.Minute)
	verifier := NewTokenVerifier(publicKey, testIssuer, testAudience)

	user := testUser()
	first, err := signer.Sign(user)
	require.NoError(t, err)
	second, err := signer.Sign(user)
	require.NoError(t, err)

	firstClaims, err := verifier.Verify(first)
	require.NoError(t, err)
	secondClaims, err := verifier.Verify(second)
	require.NoError(t, err)
	require.NotEqual(t, firstClaims.TokenID, secondClaims.TokenID)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, privateKeyA := testKeypair(t)
	publicKeyB, _ := testKeypair(t)

	signer := NewTokenSigner(privateKeyA, testIssuer, testAudience, 30*time.Minute)
	verifier := NewTokenVerifier(publicKeyB, testIssuer, testAudience)

	token, err := signer.Sign(testUser())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, model.ErrUntrustedToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	publicKey, privateKey := testKeypair(t)

	signer := NewTokenSigner(privateKey, testIssuer, testAudience, 30*time.Minute)
	signer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	verifier := NewTokenVerifier(publicKey, testIssuer, testAudience)

	token, err := signer.Sign(testUser())
	require.NoError(t, err)

	// Correct signature, lapsed lifetime.
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
	require.NotErrorIs(t, err, model.ErrUntrustedToken)
}

func TestVerifyRejectsTokenFromTheFuture(t *testing.T) {
	publicKey, privateKey := testKeypair(t)

	signer := NewTokenSigner(privateKey, testIssuer, testAudience, 30*time.Minute)
	signer.now = func() time.Time { return time.Now().Add(time.Hour) }
	verifier := NewTokenVerifier(publicKey, testIssuer, testAudience)

	token, err := signer.Sign(testUser())
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestVerifyRejectsIssuerAndAudienceMismatch(t *testing.T) {
	publicKey, privateKey := testKeypair(t)
	user := testUser()

	wrongIssuer := NewTokenSigner(privateKey, "someone-else", testAudience, 30*time.Minute)
	wrongAudience := NewTokenSigner(privateKey, testIssuer, "someone-else", 30*time.Minute)
	verifier := NewTokenVerifier(publicKey, testIssuer, testAudience)

	token, err := wrongIssuer.Sign(user)
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, model.ErrTokenInvalid)

	token, err = wrongAudience.Sign(user)
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, model.ErrTokenInvalid)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	publicKey, _ := testKeypair(t)
	verifier := NewTokenVerifier(publicKey, testIssuer, testAudience)

	for _, token := range []string{"", "garbage", "a.b", "a.b.c"} {
		_, err := verifier.Verify(token)
		require.Error(t, err, "token=%q", token)
		require.True(t,
			errors.Is(err, model.ErrMalformedToken) || errors.Is(err, model.ErrTokenInvalid),
			"token=%q err=%v", token, err)
	}
}

func TestDecodeKeys(t *testing.T) {
	publicKey, privateKey := testKeypair(t)

	decodedPrivate, err := DecodePrivateKey(base64.StdEncoding.EncodeToString(privateKey))
	require.NoError(t, err)
	require.Equal(t, privateKey, decodedPrivate)

	decodedSeed, err := DecodePrivateKey(base64.StdEncoding.EncodeToString(privateKey.Seed()))
	require.NoError(t, err)
	require.Equal(t, privateKey, decodedSeed)

	decodedPublic, err := DecodePublicKey(base64.StdEncoding.EncodeToString(publicKey))
	require.NoError(t, err)
	require.Equal(t, publicKey, decodedPublic)

	_, err = DecodePrivateKey("not base64!!!")
	require.Error(t, err)
	_, err = DecodePrivateKey(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
	_, err = DecodePublicKey(base64.StdEncoding.EncodeToString([]byte("short")))
	require.Error(t, err)
}
