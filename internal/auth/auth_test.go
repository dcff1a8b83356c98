package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIssuer(now time.Time) *Issuer {
	iss := NewIssuer("tagattend", "test-key", 15*time.Minute, 24*time.Hour)
	iss.now = func() time.Time { return now }
	return iss
}

func TestIssueAndParse(t *testing.T) {
	now := time.Now()
	iss := testIssuer(now)

	pair, err := iss.Issue("reader-1", RoleReader)
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(15*time.Minute), pair.AccessExp, time.Second)

	claims, err := iss.Parse(pair.AccessToken, KindAccess)
	require.NoError(t, err)
	assert.Equal(t, "reader-1", claims.Subject)
	assert.Equal(t, RoleReader, claims.Role)
	assert.NotEmpty(t, claims.ID)

	_, err = iss.Parse(pair.RefreshToken, KindAccess)
	assert.ErrorIs(t, err, ErrWrongKind)
	_, err = iss.Parse(pair.AccessToken, KindRefresh)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestParseRejects(t *testing.T) {
	now := time.Now()
	pair, err := testIssuer(now).Issue("reader-1", RoleReader)
	require.NoError(t, err)

	other := NewIssuer("someone-else", "test-key", time.Minute, time.Minute)
	_, err = other.Parse(pair.AccessToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey := NewIssuer("tagattend", "other-key", time.Minute, time.Minute)
	_, err = wrongKey.Parse(pair.AccessToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := testIssuer(now.Add(time.Hour))
	_, err = later.Parse(pair.AccessToken, KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = testIssuer(now).Parse("not-a-jwt", KindAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDeviceAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	iss := testIssuer(time.Now())
	pair, err := iss.Issue("reader-7", RoleReader)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/v1/ping", DeviceAuth(iss), func(c *gin.Context) {
		claims, ok := FromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Subject)
	})

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"Bearer " + pair.AccessToken, http.StatusOK},
		{"bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, tc.header)
		if tc.want == http.StatusOK {
			assert.Equal(t, "reader-7", w.Body.String())
		}
	}
}
