package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func protected(t *testing.T) (http.Handler, *Identity) {
	t.Helper()
	seen := &Identity{}
	h := NewJWTMiddleware(testSecret).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		require.True(t, ok)
		*seen = id
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, seen
}

func TestAuthenticateAcceptsCompleteIdentity(t *testing.T) {
	h, seen := protected(t)
	want := Identity{UserID: "user-1", OrgID: "org-1", OrgSlug: "acme"}
	token, err := Mint(testSecret, want, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, want, *seen)
}

func TestAuthenticateFailsClosed(t *testing.T) {
	valid, err := Mint(testSecret, Identity{UserID: "u", OrgID: "o", OrgSlug: "s"}, time.Minute)
	require.NoError(t, err)
	noOrg, err := Mint(testSecret, Identity{UserID: "u"}, time.Minute)
	require.NoError(t, err)
	expired, err := Mint(testSecret, Identity{UserID: "u", OrgID: "o", OrgSlug: "s"}, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := Mint([]byte("other"), Identity{UserID: "u", OrgID: "o", OrgSlug: "s"}, time.Minute)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Sub: "u", OrgID: "o", OrgSlug: "s"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{Sub: "u", OrgID: "o", OrgSlug: "s"}).
		SignedString(testSecret)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic " + valid,
		"missing org":    "Bearer " + noOrg,
		"expired":        "Bearer " + expired,
		"wrong key":      "Bearer " + wrongKey,
		"alg none":       "Bearer " + none,
		"alg HS512":      "Bearer " + hs512,
		"garbage":        "Bearer not-a-jwt",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			h, _ := protected(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestValidate(t *testing.T) {
	require.ErrorIs(t, Identity{UserID: "u", OrgID: "o"}.Validate(), ErrForbidden)
	require.NoError(t, Identity{UserID: "u", OrgID: "o", OrgSlug: "s"}.Validate())
}
