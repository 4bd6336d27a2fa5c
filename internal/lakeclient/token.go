package lakeclient

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// tokenRefreshSkew is how far ahead of expiry a cached token is refreshed,
// per HxprTokenProvider.getToken: tokenExpiry = now + (expiresIn - 60).
const tokenRefreshSkew = 60 * time.Second

// TokenProvider acquires and caches an OAuth2 Resource-Owner-Password
// token, refreshing it 60s before expiry under a mutex. Grounded on
// HxprTokenProvider.java.
type TokenProvider struct {
	oauthCfg oauth2.Config
	username string
	password string

	mu     sync.Mutex
	token  *oauth2.Token
	expiry time.Time
}

// NewTokenProvider constructs a TokenProvider.
func NewTokenProvider(tokenURL, clientID, clientSecret, username, password string) *TokenProvider {
	return &TokenProvider{
		oauthCfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint: oauth2.Endpoint{
				TokenURL: tokenURL,
			},
		},
		username: username,
		password: password,
	}
}

// Token returns a cached, still-valid access token, fetching a new one if
// the cached token is absent or within tokenRefreshSkew of expiry.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != nil && time.Now().Before(p.expiry) {
		return p.token.AccessToken, nil
	}

	tok, err := p.oauthCfg.PasswordCredentialsToken(ctx, p.username, p.password)
	if err != nil {
		return "", err
	}

	p.token = tok
	if !tok.Expiry.IsZero() {
		p.expiry = tok.Expiry.Add(-tokenRefreshSkew)
	} else {
		p.expiry = time.Now().Add(time.Hour)
	}
	return tok.AccessToken, nil
}
