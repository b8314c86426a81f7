package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/cppla/yapper/config"
	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/store"
)

func TestHashExternalID(t *testing.T) {
	a := HashExternalID("1234567890")
	assert.Equal(t, a, HashExternalID("1234567890"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), a)
	assert.NotEqual(t, a, HashExternalID("1234567891"))
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashExternalID("abc"))
}

type fakeLookup map[string]*models.User

func (f fakeLookup) GetByHashedExternalID(_ context.Context, hashed string) (*models.User, error) {
	if u, ok := f[hashed]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func TestResolverFindUser(t *testing.T) {
	sam := &models.User{ID: 1, Username: "Sam"}
	r := NewResolver(fakeLookup{HashExternalID("g-1"): sam})

	u, err := r.FindUser(context.Background(), HashExternalID("g-1"))
	require.NoError(t, err)
	assert.Equal(t, sam, u)

	u, err = r.FindUser(context.Background(), HashExternalID("g-2"))
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestNewProvidersOnlyConfigured(t *testing.T) {
	ps := NewProviders(config.AppConfig{
		GoogleClientID:     "id",
		GoogleClientSecret: "secret",
		OAuthRedirectBase:  "http://localhost:3000",
	})
	g, err := ps.Get("Google")
	require.NoError(t, err)
	assert.Equal(t, "google", g.Name())

	u, err := url.Parse(g.AuthCodeURL("st"))
	require.NoError(t, err)
	assert.Equal(t, "st", u.Query().Get("state"))
	assert.Equal(t, "http://localhost:3000/auth/google/callback", u.Query().Get("redirect_uri"))

	_, err = ps.Get("github")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func newUpstream(t *testing.T, userInfo string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseForm()) || r.PostForm.Get("code") != "good" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"tok","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(status)
		fmt.Fprint(w, userInfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(srv *httptest.Server) *OAuthProvider {
	return NewOAuthProvider("test", &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}, srv.URL+"/userinfo")
}

func TestOAuthProviderSubject(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"string id":  {body: `{"id":"1098","name":"Sam"}`, want: "1098"},
		"numeric id": {body: `{"id":583231,"login":"octocat"}`, want: "583231"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := newTestProvider(newUpstream(t, tc.body, http.StatusOK))
			got, err := p.Subject(context.Background(), "good")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOAuthProviderSubjectFailures(t *testing.T) {
	p := newTestProvider(newUpstream(t, `{"id":"1"}`, http.StatusOK))
	_, err := p.Subject(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUpstream)

	p = newTestProvider(newUpstream(t, `{"name":"no id"}`, http.StatusOK))
	_, err = p.Subject(context.Background(), "good")
	assert.ErrorIs(t, err, ErrUpstream)

	p = newTestProvider(newUpstream(t, `{}`, http.StatusUnauthorized))
	_, err = p.Subject(context.Background(), "good")
	assert.ErrorIs(t, err, ErrUpstream)
}
