package signing

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSigner(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	q := s.Query(http.MethodPut, "acme/app-1/tax.pdf", 5*time.Minute)
	require.Equal(t, "1700000300", q.Get(ParamExpires))
	sig := q.Get(ParamSignature)
	require.NotEmpty(t, sig)

	require.True(t, s.Validate(http.MethodPut, "acme/app-1/tax.pdf", "1700000300", sig))

	cases := []struct {
		name, method, key, expires, sig string
	}{
		{"wrong method", http.MethodGet, "acme/app-1/tax.pdf", "1700000300", sig},
		{"wrong key", http.MethodPut, "acme/app-2/tax.pdf", "1700000300", sig},
		{"wrong expiry", http.MethodPut, "acme/app-1/tax.pdf", "1700000301", sig},
		{"bad expiry", http.MethodPut, "acme/app-1/tax.pdf", "soon", sig},
		{"bad signature", http.MethodPut, "acme/app-1/tax.pdf", "1700000300", "deadbeef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.False(t, s.Validate(tc.method, tc.key, tc.expires, tc.sig))
		})
	}
}

func TestSignerRejectsExpired(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }
	q := s.Query(http.MethodGet, "k", time.Minute)

	now = now.Add(2 * time.Minute)
	require.False(t, s.Validate(http.MethodGet, "k", q.Get(ParamExpires), q.Get(ParamSignature)))
}
