// Package leakhunter implements spec.md §4.4: querying an external
// code-search API under rate-limit discipline and classifying matches.
package leakhunter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/OP-88/Sentinyl/pkg/leak"
)

// sensitiveKeywords is the fixed list spec.md §4.4 names.
var sensitiveKeywords = []string{
	"password", "api_key", "apikey", "secret", "token",
	"access_token", "credentials", "private_key", "ssh_key", "email",
}

// maxResultsPerKeyword bounds how many matches are processed per keyword.
const maxResultsPerKeyword = 50

// keywordPause is the cooldown between keyword searches.
const keywordPause = 2 * time.Second

// secondaryRateLimitPause is the sleep on a 403 secondary rate limit.
const secondaryRateLimitPause = 60 * time.Second

// lowBudgetThreshold triggers a sleep-until-reset when the remaining quota
// drops below it.
const lowBudgetThreshold = 5

// Match is a single code-search hit, already classified.
type Match struct {
	RepoURL  string
	RepoName string
	FilePath string
	Snippet  string
	Kind     leak.Kind
	Severity leak.Severity
}

// Hunter queries the code-search API for a domain across the fixed
// keyword list.
type Hunter struct {
	httpClient *http.Client
	apiBase    string
	token      string
	clock      func() time.Time
	sleep      func(time.Duration)
}

// New creates a Hunter against the given code-search API base URL (e.g.
// GitHub's) authenticated with token.
func New(apiBase, token string) *Hunter {
	return &Hunter{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiBase:    apiBase,
		token:      token,
		clock:      time.Now,
		sleep:      time.Sleep,
	}
}

// Search issues one code search per sensitive keyword for domain, pausing
// between keywords and respecting the external service's rate limit.
func (h *Hunter) Search(ctx context.Context, domain string) ([]Match, error) {
	var matches []Match

	for i, keyword := range sensitiveKeywords {
		if i > 0 {
			h.sleep(keywordPause)
		}

		if err := ctx.Err(); err != nil {
			return matches, err
		}

		budget, err := h.rateLimitRemaining(ctx)
		if err == nil && budget.Remaining < lowBudgetThreshold {
			wait := time.Until(budget.ResetAt)
			if wait > 0 {
				h.sleep(wait)
			}
		}

		results, err := h.searchCode(ctx, domain, keyword)
		if err != nil {
			if isSecondaryRateLimit(err) {
				h.sleep(secondaryRateLimitPause)
				continue
			}
			continue
		}
		matches = append(matches, results...)
	}

	return matches, nil
}

type rateLimitBudget struct {
	Remaining int
	ResetAt   time.Time
}

// rateLimitRemaining reads the code-search API's remaining quota.
func (h *Hunter) rateLimitRemaining(ctx context.Context) (rateLimitBudget, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.apiBase+"/rate_limit", nil)
	if err != nil {
		return rateLimitBudget{}, fmt.Errorf("building rate-limit request: %w", err)
	}
	h.setAuth(req)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return rateLimitBudget{}, fmt.Errorf("calling rate-limit endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Resources struct {
			Search struct {
				Remaining int   `json:"remaining"`
				Reset     int64 `json:"reset"`
			} `json:"search"`
		} `json:"resources"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return rateLimitBudget{}, fmt.Errorf("decoding rate-limit response: %w", err)
	}

	return rateLimitBudget{
		Remaining: body.Resources.Search.Remaining,
		ResetAt:   time.Unix(body.Resources.Search.Reset, 0),
	}, nil
}

type secondaryRateLimitError struct{ status int }

func (e *secondaryRateLimitError) Error() string {
	return fmt.Sprintf("secondary rate limit: HTTP %d", e.status)
}

func isSecondaryRateLimit(err error) bool {
	_, ok := err.(*secondaryRateLimitError)
	return ok
}

type codeSearchResponse struct {
	Items []struct {
		Path       string `json:"path"`
		Repository struct {
			FullName string `json:"full_name"`
			HTMLURL  string `json:"html_url"`
		} `json:"repository"`
		URL string `json:"url"`
	} `json:"items"`
}

// searchCode runs a single `"domain" keyword` search and classifies each
// match's severity.
func (h *Hunter) searchCode(ctx context.Context, domain, keyword string) ([]Match, error) {
	query := fmt.Sprintf("%q %s", domain, keyword)
	u := fmt.Sprintf("%s/search/code?q=%s&order=desc", h.apiBase, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	h.setAuth(req)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling code-search API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden {
		return nil, &secondaryRateLimitError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("code-search API returned HTTP %d", resp.StatusCode)
	}

	var parsed codeSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	kind := classifyKeyword(keyword)

	matches := make([]Match, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		if i >= maxResultsPerKeyword {
			break
		}

		snippet := h.fetchSnippet(ctx, item.URL)
		matches = append(matches, Match{
			RepoURL:  item.Repository.HTMLURL,
			RepoName: item.Repository.FullName,
			FilePath: item.Path,
			Snippet:  snippet,
			Kind:     kind,
			Severity: leak.ClassifySeverity(kind, snippet),
		})
	}
	return matches, nil
}

// fetchSnippet fetches and decodes file content, truncating per
// leak.TruncateSnippet. Falls back to a placeholder for binary content.
func (h *Hunter) fetchSnippet(ctx context.Context, contentURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentURL, nil)
	if err != nil {
		return "<unavailable>"
	}
	h.setAuth(req)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "<unavailable>"
	}
	defer func() { _ = resp.Body.Close() }()

	var body struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "<unavailable>"
	}

	if body.Encoding != "base64" {
		return leak.TruncateSnippet(body.Content)
	}

	decoded, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		return "<binary>"
	}
	return leak.TruncateSnippet(string(decoded))
}

func (h *Hunter) setAuth(req *http.Request) {
	if h.token != "" {
		req.Header.Set("Authorization", "token "+h.token)
	}
}

// classifyKeyword maps a search keyword to its leak.Kind, per spec.md
// §4.4's fixed keyword list.
func classifyKeyword(keyword string) leak.Kind {
	switch keyword {
	case "password":
		return leak.KindPassword
	case "api_key", "apikey":
		return leak.KindAPIKey
	case "secret":
		return leak.KindSecret
	case "token", "access_token":
		return leak.KindToken
	case "credentials":
		return leak.KindCredential
	case "private_key", "ssh_key":
		return leak.KindPrivateKey
	default:
		return leak.KindSecret
	}
}
