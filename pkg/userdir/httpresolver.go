package userdir

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/edgeflare/feedview/pkg/httputil"
)

// HTTPResolver resolves display names by calling an upstream user-directory
// service. It backs the optional cache-miss fallback path; the engine works
// without it (sentinel author on miss).
type HTTPResolver struct {
	baseURL string
}

// NewHTTPResolver creates a resolver against a user-directory base URL,
// eg http://identity:8081.
func NewHTTPResolver(baseURL string) *HTTPResolver {
	return &HTTPResolver{baseURL: strings.TrimRight(baseURL, "/")}
}

// ResolveUsernames fetches display names for the given user ids. Unknown ids
// are simply absent from the returned map.
func (r *HTTPResolver) ResolveUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	reqURL := fmt.Sprintf("%s/users?ids=%s", r.baseURL, url.QueryEscape(strings.Join(ids, ",")))
	cfg := httputil.DefaultRequestConfig(http.MethodGet, reqURL)
	// Author resolution sits on the event-apply path; fail fast and let the
	// sentinel name cover the miss rather than stalling the consumer.
	cfg.MaxRetries = 2
	cfg.MaxBackoff = 500 * time.Millisecond
	resp, err := httputil.Request(ctx, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve usernames: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolve usernames: unexpected status %d", resp.StatusCode)
	}

	// Expected shape: [{"userId": "...", "username": "..."}, ...]
	var users []struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(resp.Body, &users); err != nil {
		return nil, fmt.Errorf("resolve usernames: decode response: %w", err)
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		if u.UserID != "" && u.Username != "" {
			names[u.UserID] = u.Username
		}
	}
	return names, nil
}
