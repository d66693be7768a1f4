package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService("test-secret-32-bytes-should-be-long-enough", 0)
	require.Equal(t, DefaultTTL, svc.TTL())

	tokenStr, exp, err := svc.Issue("64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(DefaultTTL), exp, 5*time.Second)

	claims, err := svc.Verify(tokenStr)
	require.NoError(t, err)
	require.Equal(t, "64b7f0c2a1b2c3d4e5f60718", claims.Subject)
	require.NotEmpty(t, claims.ID)

	// only the identity id is bound: no name, email or role claims
	parsed, _, err := jwt.NewParser().ParseUnverified(tokenStr, jwt.MapClaims{})
	require.NoError(t, err)
	mc := parsed.Claims.(jwt.MapClaims)
	require.NotContains(t, mc, "role")
	require.NotContains(t, mc, "email")
}

func TestIssue_UniqueTokenIDs(t *testing.T) {
	svc := NewService("secret-unique-ids-xxxxxxxxxxxxxxxxxx", time.Hour)
	a, _, err := svc.Issue("id-1")
	require.NoError(t, err)
	b, _, err := svc.Issue("id-1")
	require.NoError(t, err)

	ca, err := svc.Verify(a)
	require.NoError(t, err)
	cb, err := svc.Verify(b)
	require.NoError(t, err)
	require.NotEqual(t, ca.ID, cb.ID)
}

func TestIssue_EmptyIdentity(t *testing.T) {
	_, _, err := NewService("x", time.Hour).Issue("")
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	svc := NewService("another-secret-32-bytes-longgggg", time.Minute)
	issuedAt := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issuedAt }
	tokenStr, _, err := svc.Issue("u2")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(tokenStr)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecretFails(t *testing.T) {
	tokenStr, _, err := NewService("secret-one-32-bytes-xxxxxxxxxxxxxxxx", time.Hour).Issue("u3")
	require.NoError(t, err)

	_, err = NewService("different-secret-xxxxxxxxxxxxxxxx", time.Hour).Verify(tokenStr)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	_, err := NewService("x", time.Hour).Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_AlgNoneRejected(t *testing.T) {
	payload := `{"sub":"u-none","exp":9999999999}`
	headerEnc := seg([]byte(`{"alg":"none"}`))
	payloadEnc := seg([]byte(payload))
	tok := headerEnc + "." + payloadEnc + "."
	_, err := NewService("x", time.Hour).Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_TamperedPayload(t *testing.T) {
	svc := NewService("tamper-test-secret-32-bytes-xxxxxxx", time.Hour)
	tokenStr, _, err := svc.Issue("user-t")
	require.NoError(t, err)

	parts := strings.Split(tokenStr, ".")
	require.Len(t, parts, 3)
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = seg([]byte(strings.Replace(string(payloadBytes), "user-t", "attacker", 1)))

	_, err = svc.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func seg(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }
