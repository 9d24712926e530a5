package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/vocadrill/vocadrill/internal/domain/entities"
)

// Client is a typed wrapper around the remote progress service. It attaches
// the bearer credential to every call and maps HTTP outcomes onto the
// classified error set in errors.go.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     *zap.Logger
}

// NewClient creates a client for the service rooted at baseURL. An empty
// token is allowed; the service then treats every call as unauthenticated.
func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: timeout},
		log:     log,
	}
}

// FetchProgress retrieves the serialized aggregate for a user. The payload
// is returned raw so the caller can decide what base to merge it over
// (defaults, or the local backup when recovering a sparse remote copy).
func (c *Client) FetchProgress(ctx context.Context, userID string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, "fetch progress", http.MethodGet, c.userPath(userID, "progress"), nil, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// SaveProgress replaces the full aggregate for a user.
func (c *Client) SaveProgress(ctx context.Context, userID string, p *entities.Progress) error {
	return c.do(ctx, "save progress", http.MethodPut, c.userPath(userID, "progress"), p, nil)
}

// MarkLearned flags a single word as learned.
func (c *Client) MarkLearned(ctx context.Context, userID string, wordID int) error {
	body := map[string]int{"wordId": wordID}
	return c.do(ctx, "mark learned", http.MethodPost, c.userPath(userID, "progress/learned"), body, nil)
}

// UnmarkLearned removes a single word from the learned set.
func (c *Client) UnmarkLearned(ctx context.Context, userID string, wordID int) error {
	path := c.userPath(userID, fmt.Sprintf("progress/learned/%d", wordID))
	return c.do(ctx, "unmark learned", http.MethodDelete, path, nil, nil)
}

// SubmitQuizResult records one quiz answer for a word.
func (c *Client) SubmitQuizResult(ctx context.Context, userID string, wordID int, correct bool) error {
	body := map[string]any{"wordId": wordID, "correct": correct}
	return c.do(ctx, "submit quiz result", http.MethodPost, c.userPath(userID, "progress/quiz"), body, nil)
}

// AppendSession appends one study-session record.
func (c *Client) AppendSession(ctx context.Context, userID string, rec entities.SessionRecord) error {
	return c.do(ctx, "append session", http.MethodPost, c.userPath(userID, "progress/sessions"), rec, nil)
}

// UpdateStreak replaces the streak fields of the remote stats.
func (c *Client) UpdateStreak(ctx context.Context, userID string, stats entities.Stats) error {
	body := map[string]any{
		"currentStreak": stats.CurrentStreak,
		"longestStreak": stats.LongestStreak,
		"lastStudyDate": stats.LastStudyDate,
	}
	return c.do(ctx, "update streak", http.MethodPut, c.userPath(userID, "progress/streak"), body, nil)
}

// UpdatePreference sets a single preference key.
func (c *Client) UpdatePreference(ctx context.Context, userID, key string, value any) error {
	body := map[string]any{"key": key, "value": value}
	return c.do(ctx, "update preference", http.MethodPut, c.userPath(userID, "progress/preferences"), body, nil)
}

// Register creates a new user on the service and returns the assigned identity.
func (c *Client) Register(ctx context.Context, name string) (entities.User, error) {
	var user entities.User
	body := map[string]string{"name": name}
	err := c.do(ctx, "register user", http.MethodPost, "/users", body, &user)
	return user, err
}

// DeleteUser removes the identity record and its aggregate from the service.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	return c.do(ctx, "delete user", http.MethodDelete, "/users/"+url.PathEscape(userID), nil, nil)
}

// ActivateCertification claims a certification key for the user. Uniqueness
// is enforced server-side, so this has no local fallback.
func (c *Client) ActivateCertification(ctx context.Context, userID, key string) error {
	body := map[string]string{"key": key}
	return c.do(ctx, "activate certification", http.MethodPost, c.userPath(userID, "certification"), body, nil)
}

func (c *Client) userPath(userID, rest string) string {
	return "/users/" + url.PathEscape(userID) + "/" + rest
}

// do runs one request and decodes the response body into out when out is
// non-nil. Status codes map onto the classified error set; everything at or
// above 500 and every network-level failure becomes a TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fallthrough to decode below
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%s: %w", op, ErrInvalid)
	default:
		return &TransportError{Op: op, Status: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
