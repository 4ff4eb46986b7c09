package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	apiBase = "https://discord.com/api/v10"

	authorizeURL = "https://discord.com/oauth2/authorize"
	tokenURL     = apiBase + "/oauth2/token"

	// hard cap on every identity-provider call; a hung upstream must
	// not hang the login attempt indefinitely
	requestTimeout = 10 * time.Second
)

// UpstreamError is any non-2xx answer from the Discord API during the
// code exchange or a resource fetch. The raw body is kept for logs
// and must never reach the browser.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("discord upstream error: status=%d", e.Status)
}

// OAuthClient performs the three outbound identity-provider calls:
// authorize-URL construction, code exchange, and bearer-auth fetches.
// Stateless between invocations; no retries.
type OAuthClient struct {
	oauth   *oauth2.Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	baseURL string
}

func NewOAuthClient(logger *slog.Logger, clientID, clientSecret, redirectURI string) *OAuthClient {
	return &OAuthClient{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		http:    NewHTTPClient(),
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		logger:  logger,
		baseURL: apiBase,
	}
}

// AuthorizeURL is deterministic apart from the caller-supplied CSRF
// state: fixed client id, redirect URI, scopes, and forced consent.
func (c *OAuthClient) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades the authorization code for a token. Provider
// rejections surface as *UpstreamError with the provider's status and
// raw body.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return nil, &UpstreamError{Status: status, Body: string(re.Body)}
		}
		return nil, err
	}
	return tok, nil
}

// FetchUser returns the authenticated user's profile.
func (c *OAuthClient) FetchUser(ctx context.Context, accessToken string) (User, error) {
	var u User
	if err := c.getJSON(ctx, "/users/@me", accessToken, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// FetchGuilds returns the guilds the user belongs to.
func (c *OAuthClient) FetchGuilds(ctx context.Context, accessToken string) ([]Guild, error) {
	var guilds []Guild
	if err := c.getJSON(ctx, "/users/@me/guilds", accessToken, &guilds); err != nil {
		return nil, err
	}
	return guilds, nil
}

func (c *OAuthClient) getJSON(ctx context.Context, path, accessToken string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("discord_api_error", "path", path, "status", resp.StatusCode)
		return &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	return json.Unmarshal(body, out)
}
