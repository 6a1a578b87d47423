package core

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthTestEngine(t *testing.T, repo UserRepository) (*gin.Engine, *TokenCodec) {
	t.Helper()
	codec, err := NewTokenCodec("middleware-test-secret", 0)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", RequireAuth(codec, repo), func(c *gin.Context) {
		u, _ := CurrentUser(c)
		c.JSON(http.StatusOK, u)
	})
	r.GET("/privileged", RequireAuth(codec, repo), SuperuserOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, codec
}

func doRequest(r *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth_MissingToken(t *testing.T) {
	r, _ := newAuthTestEngine(t, newMemUserRepo())

	w := doRequest(r, http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// A bare "Authorization" value without the Bearer scheme is also rejected.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusUnauthorized, w2.Code)
}

func TestRequireAuth_GarbageToken(t *testing.T) {
	r, _ := newAuthTestEngine(t, newMemUserRepo())

	w := doRequest(r, http.MethodGet, "/protected", "not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	repo := newMemUserRepo()
	id := seedUser(t, repo, "alice", "alice@example.com", "pw", false)
	r, codec := newAuthTestEngine(t, repo)

	tok, err := codec.Encode(User{ID: id, Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/protected", tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestRequireAuth_DeletedUser(t *testing.T) {
	repo := newMemUserRepo()
	id := seedUser(t, repo, "alice", "alice@example.com", "pw", false)
	r, codec := newAuthTestEngine(t, repo)

	tok, err := codec.Encode(User{ID: id, Username: "alice"})
	require.NoError(t, err)

	// Token was issued, then the user disappeared: stale claims must not
	// authenticate.
	repo.remove(id)
	w := doRequest(r, http.MethodGet, "/protected", tok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_StoreFailure(t *testing.T) {
	repo := &failingUserRepo{err: errors.New("connection refused")}
	r, codec := newAuthTestEngine(t, repo)

	tok, err := codec.Encode(User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	// An outage while re-fetching the user is a server fault, not a
	// revoked token.
	w := doRequest(r, http.MethodGet, "/protected", tok)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}

func TestSuperuserOnly_Forbidden(t *testing.T) {
	repo := newMemUserRepo()
	id := seedUser(t, repo, "bob", "bob@example.com", "pw", false)
	r, codec := newAuthTestEngine(t, repo)

	tok, err := codec.Encode(User{ID: id, Username: "bob"})
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/privileged", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestSuperuserOnly_Allowed(t *testing.T) {
	repo := newMemUserRepo()
	id := seedUser(t, repo, "root", "root@example.com", "pw", true)
	r, codec := newAuthTestEngine(t, repo)

	tok, err := codec.Encode(User{ID: id, Username: "root", IsSuperuser: true})
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/privileged", tok)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSuperuserOnly_RoleRefreshWithoutReissue(t *testing.T) {
	repo := newMemUserRepo()
	id := seedUser(t, repo, "carol", "carol@example.com", "pw", false)
	r, codec := newAuthTestEngine(t, repo)

	// Token minted while carol was a plain user.
	tok, err := codec.Encode(User{ID: id, Username: "carol", IsSuperuser: false})
	require.NoError(t, err)

	w := doRequest(r, http.MethodGet, "/privileged", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Promotion takes effect on the next request because the resolver
	// re-fetches the record instead of trusting the stale claims.
	repo.setSuperuser(id, true)
	w = doRequest(r, http.MethodGet, "/privileged", tok)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
