package auth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshMargin refreshes a cached token slightly before its declared
// expiry so a token never dies mid-flight.
const refreshMargin = 30 * time.Second

type oauth2Config struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	client       *http.Client
}

// oauth2Strategy implements the client-credentials flow with a cached
// token. Concurrent refreshes collapse into one token-endpoint call via
// singleflight; all waiters observe either the previous valid token or the
// newly fetched one. A failed fetch propagates to every waiter and leaves
// the cache empty, so the next invocation retries.
type oauth2Strategy struct {
	cfg   oauth2Config
	group singleflight.Group

	mu     sync.Mutex
	token  string
	expiry time.Time

	now func() time.Time // replaced in tests
}

func newOAuth2Strategy(cfg oauth2Config) *oauth2Strategy {
	return &oauth2Strategy{cfg: cfg, now: time.Now}
}

func (s *oauth2Strategy) Apply(req *http.Request) error {
	token, err := s.currentToken()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (s *oauth2Strategy) currentToken() (string, error) {
	s.mu.Lock()
	token, expiry := s.token, s.expiry
	s.mu.Unlock()
	if token != "" && s.now().Add(refreshMargin).Before(expiry) {
		return token, nil
	}

	v, err, _ := s.group.Do("token", func() (any, error) {
		// Another caller may have finished a refresh while this one waited
		// on the flight group.
		s.mu.Lock()
		token, expiry := s.token, s.expiry
		s.mu.Unlock()
		if token != "" && s.now().Add(refreshMargin).Before(expiry) {
			return token, nil
		}
		return s.fetch()
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// tokenResponse is the JSON body the token endpoint must return.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

func (s *oauth2Strategy) fetch() (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.cfg.clientID},
		"client_secret": {s.cfg.clientSecret},
	}
	if s.cfg.scope != "" {
		form.Set("scope", s.cfg.scope)
	}

	resp, err := s.cfg.client.Post(s.cfg.tokenURL, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &TokenError{Detail: "token endpoint unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &TokenError{Detail: "failed to read token response", Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TokenError{Detail: "token endpoint rejected the request", Status: resp.StatusCode}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &TokenError{Detail: "token response is not valid JSON", Status: resp.StatusCode, Err: err}
	}
	if tr.AccessToken == "" {
		return "", &TokenError{Detail: "token response is missing access_token", Status: resp.StatusCode}
	}

	expiry := s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	if tr.ExpiresIn <= 0 {
		// No declared lifetime: keep the token for an hour rather than
		// refetching on every call.
		expiry = s.now().Add(time.Hour)
	}

	s.mu.Lock()
	s.token = tr.AccessToken
	s.expiry = expiry
	s.mu.Unlock()

	return tr.AccessToken, nil
}
