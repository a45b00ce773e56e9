// Package auth implements the GitHub side of the login flow: building the
// authorization URL, exchanging the callback code for an identity, and
// signing the optional OAuth state parameter.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User visits /auth/github → redirected to GitHub's authorization page
//  2. GitHub calls back /auth/github/callback with a short-lived code
//  3. Server exchanges the code for an access token (server-to-server)
//  4. Server calls GitHub's user API with that token to learn who logged in
//  5. Server upserts the user and redirects to the dashboard page
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/sakif/devdash/internal/apperror"
)

// DefaultUserURL is GitHub's "get the authenticated user" endpoint.
const DefaultUserURL = "https://api.github.com/user"

// DefaultScopes are requested on every authorization redirect.
//   - "read:user": the user's profile (ID, login, avatar, public email)
//   - "repo":      repositories, for the dashboard's PR and issue panels
var DefaultScopes = []string{"read:user", "repo"}

// GitHubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal the fields we need.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID        int64   `json:"id"`         // GitHub's numeric user ID — stable, never changes
	Login     string  `json:"login"`      // GitHub username, e.g. "octocat"
	Email     *string `json:"email"`      // null if hidden in GitHub settings
	AvatarURL string  `json:"avatar_url"` // Profile picture URL
}

// Identity is the result of a successful code exchange: who the user is, and
// the bearer token that proves it.
type Identity struct {
	AccessToken string
	ExternalID  string // GitHub user ID in decimal
	Username    string
	Email       *string
	AvatarURL   string
}

// GitHubConfig configures a GitHubProvider. Empty URLs fall back to GitHub's
// public endpoints; tests point them at httptest servers.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	UserURL      string
	// Timeout bounds the whole exchange (token call + profile call).
	Timeout time.Duration
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// WHY SERVER-SIDE EXCHANGE?
// The code-for-token exchange happens server-to-server, using the ClientSecret.
// The access token never touches the browser.
type GitHubProvider struct {
	config     *oauth2.Config
	userURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewGitHubProvider creates a GitHubProvider from cfg.
//
// callbackURL (cfg.RedirectURL) must match the "Authorization callback URL"
// configured on the GitHub OAuth App exactly.
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	endpoint := github.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// Credentials go in the POST body, as GitHub documents. Pinning the style
	// also stops x/oauth2 from auto-detecting it with a second token request
	// after a failure.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	userURL := cfg.UserURL
	if userURL == "" {
		userURL = DefaultUserURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userURL: userURL,
		timeout: timeout,
		// The context deadline in Exchange fires first; the client timeout
		// only catches calls made without it.
		httpClient: &http.Client{Timeout: timeout + time.Second},
	}
}

// AuthURL returns the URL to redirect the user to for authorization.
// An empty state is omitted from the URL.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the OAuth flow: trades the authorization code for the
// user's GitHub identity.
//
// Steps:
//  1. Exchange the code for an OAuth access token (one POST, no retries)
//  2. Use the token to call GitHub's /user endpoint (one GET, no retries)
//  3. Unmarshal the response into a GitHubUser struct
//
// Step 2 only runs if step 1 succeeded. Both share one deadline. Every failure,
// including a timeout, comes back as an apperror.ErrAuthExchange.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// x/oauth2 picks its HTTP client up from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	// Step 1: exchange authorization code → OAuth access token.
	// x/oauth2 rejects responses without access_token, non-2xx statuses and
	// bodies carrying an OAuth "error" field.
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.AuthExchangeFailed("token exchange", err)
	}

	// Step 2: call the user endpoint with the token as a bearer credential.
	ghUser, err := p.fetchUser(ctx, token)
	if err != nil {
		return nil, err
	}

	return &Identity{
		AccessToken: token.AccessToken,
		ExternalID:  strconv.FormatInt(ghUser.ID, 10),
		Username:    ghUser.Login,
		Email:       ghUser.Email,
		AvatarURL:   ghUser.AvatarURL,
	}, nil
}

func (p *GitHubProvider) fetchUser(ctx context.Context, token *oauth2.Token) (*GitHubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, apperror.AuthExchangeFailed("building profile request", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	// oauth2.Config.Client returns an *http.Client that adds
	// "Authorization: Bearer <token>" to every request.
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, apperror.AuthExchangeFailed("profile fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.AuthExchangeFailed("profile fetch",
			fmt.Errorf("GitHub /user API returned status %d", resp.StatusCode))
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, apperror.AuthExchangeFailed("decoding profile", err)
	}

	if ghUser.ID == 0 {
		return nil, apperror.AuthExchangeFailed("decoding profile",
			fmt.Errorf("GitHub returned an invalid user (ID = 0)"))
	}

	return &ghUser, nil
}
