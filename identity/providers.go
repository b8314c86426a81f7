package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/yapper/config"
)

var (
	// ErrUnknownProvider is returned for provider names that are not configured.
	ErrUnknownProvider = errors.New("unknown identity provider")
	// ErrUpstream wraps failures talking to the provider.
	ErrUpstream = errors.New("identity provider failure")
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubUserInfoURL = "https://api.github.com/user"
)

// Provider is an external identity provider reached through an authorization-code flow.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	// Subject exchanges the code and returns the provider's stable user id.
	Subject(ctx context.Context, code string) (string, error)
}

// Providers indexes the configured providers by name.
type Providers map[string]Provider

// Get looks a provider up case-insensitively.
func (p Providers) Get(name string) (Provider, error) {
	if pr, ok := p[strings.ToLower(name)]; ok {
		return pr, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// OAuthProvider implements Provider on top of x/oauth2.
type OAuthProvider struct {
	name        string
	conf        *oauth2.Config
	userInfoURL string
}

// NewProviders builds every provider whose client credentials are present.
func NewProviders(c config.AppConfig) Providers {
	ps := Providers{}
	if c.GoogleClientID != "" && c.GoogleClientSecret != "" {
		ps["google"] = NewOAuthProvider("google", &oauth2.Config{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  callbackURL(c, "google"),
			Scopes:       []string{"profile"},
			Endpoint:     google.Endpoint,
		}, googleUserInfoURL)
	}
	if c.GitHubClientID != "" && c.GitHubClientSecret != "" {
		ps["github"] = NewOAuthProvider("github", &oauth2.Config{
			ClientID:     c.GitHubClientID,
			ClientSecret: c.GitHubClientSecret,
			RedirectURL:  callbackURL(c, "github"),
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		}, githubUserInfoURL)
	}
	return ps
}

// NewOAuthProvider wires an oauth2 config to a userinfo endpoint.
// The subject is read from the "id" field, which Google returns as a string and GitHub as a number.
func NewOAuthProvider(name string, conf *oauth2.Config, userInfoURL string) *OAuthProvider {
	return &OAuthProvider{name: name, conf: conf, userInfoURL: userInfoURL}
}

func callbackURL(c config.AppConfig, provider string) string {
	return fmt.Sprintf("%s/auth/%s/callback", c.OAuthRedirectBase, provider)
}

func (p *OAuthProvider) Name() string { return p.name }

func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.conf.AuthCodeURL(state)
}

func (p *OAuthProvider) Subject(ctx context.Context, code string) (string, error) {
	token, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: exchange code: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := p.conf.Client(ctx, token).Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s user info: %v", ErrUpstream, p.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s user info request failed: %s", ErrUpstream, p.name, resp.Status)
	}

	return decodeSubject(resp.Body)
}

func decodeSubject(body io.Reader) (string, error) {
	var payload map[string]interface{}
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode user info: %v", ErrUpstream, err)
	}
	switch id := payload["id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case json.Number:
		return id.String(), nil
	}
	return "", fmt.Errorf("%w: user info has no id", ErrUpstream)
}
