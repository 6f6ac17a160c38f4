// Package github talks to the hosting provider's REST API on behalf of a user token.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"streakd/internal/domain"
	"streakd/internal/logger"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL = "https://api.github.com"

	defaultRequestsPerSecond = 5
	maxErrorBody             = 512
)

type Profile struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Identity is the author/committer a commit is attributed to.
type Identity struct {
	Name  string
	Email string
}

type RemoteCommit struct {
	SHA         string
	Message     string
	AuthorName  string
	AuthorEmail string
	AuthorDate  time.Time
}

type Config struct {
	APIURL            string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client is safe for concurrent use. All calls share one rate limiter.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	logger  logger.Logger
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	raw := cfg.APIURL
	if raw == "" {
		raw = DefaultAPIURL
	}
	base, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return nil, domain.Validationf("invalid provider api url %q: %v", raw, err)
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		logger:  log.With(logger.String("component", "github_client")),
	}, nil
}

// AuthenticatedUser fetches the profile the token belongs to.
func (c *Client) AuthenticatedUser(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, token, "/user", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Emails lists the user's addresses. Requires the user:email scope.
func (c *Client) Emails(ctx context.Context, token string) ([]Email, error) {
	var emails []Email
	if err := c.get(ctx, token, "/user/emails", nil, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

// RecentCommits lists the newest commits on the default branch of owner/repo.
func (c *Client) RecentCommits(ctx context.Context, token, fullName string, limit int) ([]RemoteCommit, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return nil, domain.Validationf("repository must be owner/name, got %q", fullName)
	}
	query := url.Values{"per_page": {strconv.Itoa(limit)}}

	var payload []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name  string    `json:"name"`
				Email string    `json:"email"`
				Date  time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	path := "/repos/" + owner + "/" + repo + "/commits"
	if err := c.get(ctx, token, path, query, &payload); err != nil {
		return nil, err
	}

	commits := make([]RemoteCommit, 0, len(payload))
	for _, p := range payload {
		commits = append(commits, RemoteCommit{
			SHA:         p.SHA,
			Message:     p.Commit.Message,
			AuthorName:  p.Commit.Author.Name,
			AuthorEmail: p.Commit.Author.Email,
			AuthorDate:  p.Commit.Author.Date,
		})
	}
	return commits, nil
}

// ResolveIdentity picks the address the provider credits to the user's contribution
// graph: primary verified, then any verified, then the profile email, then the
// no-reply address.
func (c *Client) ResolveIdentity(ctx context.Context, token string) (Identity, error) {
	profile, err := c.AuthenticatedUser(ctx, token)
	if err != nil {
		return Identity{}, err
	}

	emails, err := c.Emails(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) && !isScopeError(err) {
			return Identity{}, err
		}
		c.logger.Warn("could not list user emails, falling back to profile",
			logger.String("login", profile.Login),
			logger.Error(err))
		emails = nil
	}
	return PickIdentity(profile, emails), nil
}

// PickIdentity applies the identity preference order to already fetched data.
func PickIdentity(profile *Profile, emails []Email) Identity {
	name := profile.Name
	if name == "" {
		name = profile.Login
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return Identity{Name: name, Email: e.Email}
		}
	}
	for _, e := range emails {
		if e.Verified {
			return Identity{Name: name, Email: e.Email}
		}
	}
	if profile.Email != "" {
		return Identity{Name: name, Email: profile.Email}
	}
	return Identity{Name: name, Email: NoReplyEmail(profile.ID, profile.Login)}
}

func NoReplyEmail(id int64, login string) string {
	return fmt.Sprintf("%d+%s@users.noreply.github.com", id, login)
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.status, e.body)
}

// isScopeError reports a 403/404 from an endpoint the token lacks scope for, as opposed
// to a revoked token (401).
func isScopeError(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.status != http.StatusUnauthorized
}

func (c *Client) get(ctx context.Context, token, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.WrapUpstream(err, "rate limiter")
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create provider request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WrapUpstream(err, "provider request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		cause := &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.WrapAuth(cause, "provider rejected access token for "+path)
		default:
			return domain.WrapUpstream(cause, "provider request "+path)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapUpstream(err, "failed to decode provider response")
	}
	return nil
}
