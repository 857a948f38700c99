package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"instagram-unfollower-bot/internal/config"
	"instagram-unfollower-bot/internal/domain"
	"instagram-unfollower-bot/internal/domain/model"
	"instagram-unfollower-bot/internal/domain/ports/adapter"
	"instagram-unfollower-bot/internal/infra/logging"
	"instagram-unfollower-bot/internal/infra/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Compile-time check
var _ adapter.SocialNetworkClient = (*Client)(nil)

// errUnauthorized drops the session so the next EnsureAuthenticated logs in again.
var errUnauthorized = errors.New("instagram session rejected")

// Client talks to the Instagram private web API with one shared session.
// All requests go through a single rate limiter.
type Client struct {
	cfg     config.InstagramConfig
	http    *http.Client
	limiter *rate.Limiter
	log     *zerolog.Logger
	now     func() time.Time

	retryWait time.Duration

	authMu    sync.Mutex // serializes logins
	mu        sync.Mutex
	loggedIn  time.Time
	csrfToken string
}

func NewClient(cfg config.InstagramConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("instagram credentials empty")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 200
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	every := rate.Inf
	if cfg.MinRequestInterval > 0 {
		every = rate.Every(cfg.MinRequestInterval)
	}
	l := logger.With().Str("component", "instagram_client").Logger()
	return &Client{
		cfg:       cfg,
		http:      &http.Client{Timeout: cfg.Timeout, Jar: jar},
		limiter:   rate.NewLimiter(every, 1),
		log:       &l,
		now:       time.Now,
		retryWait: 2 * time.Second,
	}, nil
}

// EnsureAuthenticated logs in when there is no session or it is older than
// the configured session TTL.
func (c *Client) EnsureAuthenticated(ctx context.Context) error {
	c.authMu.Lock()
	defer c.authMu.Unlock()

	if c.sessionValid() {
		return nil
	}
	if err := c.login(ctx); err != nil {
		metrics.IncInstagramLogin(false)
		return err
	}
	metrics.IncInstagramLogin(true)
	c.mu.Lock()
	c.loggedIn = c.now()
	c.mu.Unlock()
	return nil
}

func (c *Client) sessionValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.loggedIn.IsZero() && c.now().Sub(c.loggedIn) < c.cfg.SessionTTL
}

func (c *Client) login(ctx context.Context) error {
	defer logging.TraceDuration(c.log, "InstagramClient.login")()

	c.prefetchCSRF(ctx)
	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM:0:%d:%s", c.now().Unix(), c.cfg.Password))
	form.Set("login_attempt_count", "0")

	var resp struct {
		Status       string `json:"status"`
		Message      string `json:"message"`
		LoggedInUser *struct {
			PK flexID `json:"pk"`
		} `json:"logged_in_user"`
	}
	if err := c.do(ctx, "login", http.MethodPost, "/api/v1/accounts/login/", form, &resp); err != nil {
		return err
	}
	if resp.LoggedInUser == nil {
		return fmt.Errorf("instagram login: %w: %s", domain.ErrUpstream, resp.Message)
	}
	c.log.Info().Int64("pk", int64(resp.LoggedInUser.PK)).Msg("instagram session established")
	return nil
}

// prefetchCSRF obtains the csrftoken cookie the login form must echo in
// X-CSRFToken. Failure is not fatal; the login response reports rejection.
func (c *Client) prefetchCSRF(ctx context.Context) {
	if c.csrf() != "" {
		return
	}
	q := url.Values{"challenge_type": {"signup"}, "guid": {uuid.NewString()}}
	if err := c.do(ctx, "fetch_headers", http.MethodGet, "/api/v1/si/fetch_headers/?"+q.Encode(), nil, nil); err != nil {
		c.log.Warn().Err(err).Msg("csrf prefetch failed, logging in without token")
	}
}

func (c *Client) ResolveHandle(ctx context.Context, handle string) (model.AccountID, error) {
	defer logging.TraceDuration(c.log, "InstagramClient.ResolveHandle")()

	var resp struct {
		Data struct {
			User *struct {
				ID flexID `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	q := url.Values{"username": {handle}}
	if err := c.do(ctx, "web_profile_info", http.MethodGet, "/api/v1/users/web_profile_info/?"+q.Encode(), nil, &resp); err != nil {
		return 0, err
	}
	if resp.Data.User == nil || resp.Data.User.ID <= 0 {
		return 0, fmt.Errorf("username %q: %w", handle, domain.ErrNotFound)
	}
	return model.AccountID(resp.Data.User.ID), nil
}

func (c *Client) Followers(ctx context.Context, id model.AccountID) ([]model.FollowingProfile, error) {
	defer logging.TraceDuration(c.log, "InstagramClient.Followers")()
	return c.friendships(ctx, "followers", id)
}

func (c *Client) Followings(ctx context.Context, id model.AccountID) ([]model.FollowingProfile, error) {
	defer logging.TraceDuration(c.log, "InstagramClient.Followings")()
	return c.friendships(ctx, "following", id)
}

// friendships walks every page of a follower or following list.
func (c *Client) friendships(ctx context.Context, kind string, id model.AccountID) ([]model.FollowingProfile, error) {
	var (
		out   []model.FollowingProfile
		maxID string
	)
	for {
		q := url.Values{"count": {strconv.Itoa(c.cfg.PageSize)}}
		if maxID != "" {
			q.Set("max_id", maxID)
		}
		var page struct {
			Users []struct {
				PK       flexID `json:"pk"`
				Username string `json:"username"`
			} `json:"users"`
			NextMaxID flexString `json:"next_max_id"`
		}
		path := fmt.Sprintf("/api/v1/friendships/%d/%s/?%s", id, kind, q.Encode())
		if err := c.do(ctx, kind, http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		for _, u := range page.Users {
			out = append(out, model.FollowingProfile{ID: model.AccountID(u.PK), Username: u.Username})
		}
		if page.NextMaxID == "" || len(page.Users) == 0 {
			return out, nil
		}
		maxID = string(page.NextMaxID)
	}
}

// do performs one API call with rate limiting and retries on transport errors,
// 429 and 5xx. 404 maps to domain.ErrNotFound, every other failure to
// domain.ErrUpstream.
func (c *Client) do(ctx context.Context, endpoint, method, path string, form url.Values, out any) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.retryWait),
		backoff.WithMaxInterval(15*c.retryWait),
	), c.cfg.MaxRetries), ctx)

	var lastErr error
	err := backoff.Retry(func() error {
		err := c.once(ctx, endpoint, method, path, form, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, errUnauthorized) || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var st *statusError
		if errors.As(err, &st) && !st.retryable() {
			return backoff.Permanent(err)
		}
		c.log.Warn().Err(err).Str("endpoint", endpoint).Msg("instagram request failed, retrying")
		return err
	}, b)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if lastErr == nil {
		lastErr = err
	}
	if errors.Is(lastErr, domain.ErrNotFound) {
		return lastErr
	}
	if errors.Is(lastErr, errUnauthorized) {
		c.mu.Lock()
		c.loggedIn = time.Time{}
		c.mu.Unlock()
	}
	return fmt.Errorf("instagram %s: %w: %w", endpoint, domain.ErrUpstream, lastErr)
}

func (c *Client) once(ctx context.Context, endpoint, method, path string, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-IG-App-ID", c.cfg.AppID)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if tok := c.csrf(); tok != "" {
		req.Header.Set("X-CSRFToken", tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveInstagramRequest(endpoint, 0, time.Since(start))
		return err
	}
	defer resp.Body.Close()
	metrics.ObserveInstagramRequest(endpoint, resp.StatusCode, time.Since(start))
	c.rememberCSRF(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: http %d", errUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &statusError{code: resp.StatusCode, body: string(snippet)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) csrf() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrfToken
}

func (c *Client) rememberCSRF(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name == "csrftoken" && ck.Value != "" {
			c.mu.Lock()
			c.csrfToken = ck.Value
			c.mu.Unlock()
		}
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string { return fmt.Sprintf("http %d: %s", e.code, e.body) }

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}
