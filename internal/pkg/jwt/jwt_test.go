package jwt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(t *testing.T) (*Manager, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return NewManager(priv, &priv.PublicKey, Config{
		Issuer:   "rollcall",
		Audience: "rollcall-users",
		TTL:      time.Hour,
		KID:      "test",
	}), priv
}

func TestGenerateAndVerify(t *testing.T) {
	m, _ := testManager(t)

	tok, err := m.Generator.GenerateAccessToken(42, "ada", RoleAdmin)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.JTI)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	claims, err := m.Verifier.VerifyAccessToken(tok.Signed)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, tok.JTI, claims.ID)
	assert.True(t, claims.IsAdmin())
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	m, priv := testManager(t)
	other := NewGenerator(priv, "someone-else", "rollcall-users", "", time.Hour)

	tok, err := other.GenerateAccessToken(1, "x", RoleUser)
	require.NoError(t, err)

	_, err = m.Verifier.Verify(tok.Signed)
	assert.ErrorContains(t, err, "invalid issuer")
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	m, _ := testManager(t)
	other, _ := testManager(t)

	tok, err := other.Generator.GenerateAccessToken(1, "x", RoleUser)
	require.NoError(t, err)

	_, err = m.Verifier.Verify(tok.Signed)
	assert.Error(t, err)
}

func TestVerifyAccessTokenRejectsOtherPurpose(t *testing.T) {
	m, _ := testManager(t)

	tok, err := m.Generator.Generate(1, "x", RoleUser, "password_reset")
	require.NoError(t, err)

	_, err = m.Verifier.VerifyAccessToken(tok.Signed)
	assert.ErrorContains(t, err, "not an access token")
}

func TestVerifyRejectsExpired(t *testing.T) {
	m, _ := testManager(t)
	m.Generator.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tok, err := m.Generator.GenerateAccessToken(1, "x", RoleUser)
	require.NoError(t, err)

	_, err = m.Verifier.Verify(tok.Signed)
	assert.Error(t, err)
}

func TestLoadAndBuildFromPEMFiles(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "priv.pem")
	pubPath := filepath.Join(dir, "pub.pem")

	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}), 0o600))

	pkix, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pkix}), 0o600))

	m, err := LoadAndBuild(Config{PrivPath: privPath, PubPath: pubPath, Issuer: "i", Audience: "a", TTL: time.Minute})
	require.NoError(t, err)

	tok, err := m.Generator.GenerateAccessToken(7, "u", RoleUser)
	require.NoError(t, err)
	_, err = m.Verifier.VerifyAccessToken(tok.Signed)
	assert.NoError(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseRSAPrivateKeyPEM([]byte("not a key"))
	assert.Error(t, err)
	_, err = ParseRSAPublicKeyPEM([]byte("not a key"))
	assert.Error(t, err)
}

func TestLoadAndBuildRejectsMismatchedPair(t *testing.T) {
	a, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	b, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "priv.pem")
	pubPath := filepath.Join(dir, "pub.pem")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(a)}), 0o600))
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&b.PublicKey)}), 0o600))

	_, err = LoadAndBuild(Config{PrivPath: privPath, PubPath: pubPath})
	assert.ErrorContains(t, err, "does not match")

	_, err = LoadAndBuild(Config{PrivPath: filepath.Join(dir, "missing.pem"), PubPath: pubPath})
	assert.ErrorContains(t, err, "read private key")
}

func TestLoadAndBuildEphemeral(t *testing.T) {
	m, err := LoadAndBuild(Config{Ephemeral: true, PrivPath: "/nonexistent", Issuer: "i", Audience: "a", TTL: time.Minute})
	require.NoError(t, err)

	tok, err := m.Generator.GenerateAccessToken(1, "u", RoleUser)
	require.NoError(t, err)
	_, err = m.Verifier.VerifyAccessToken(tok.Signed)
	assert.NoError(t, err)
}
