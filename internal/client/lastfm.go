package client

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/model"
)

// genresRaw is the allowed-genre list: one name per line. A tag survives
// filtering only if its name, its punctuation-stripped form, or one of its
// words appears here.
//
//go:embed genres.txt
var genresRaw []byte

var (
	nonwordRe = regexp.MustCompile(`[^\w]+`)
	wordRe    = regexp.MustCompile(`\w+`)
)

// LastfmClient retrieves genre tags for a song from the Last.fm API.
type LastfmClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	tagLimit   int
	allowed    map[string]struct{}
}

type lastfmTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	URL   string `json:"url"`
}

// tagList tolerates Last.fm's habit of returning a single tag as an
// object instead of a one-element array.
type tagList []lastfmTag

func (t *tagList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, (*[]lastfmTag)(t))
	}
	var single lastfmTag
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return err
	}
	*t = tagList{single}
	return nil
}

type topTagsResponse struct {
	TopTags struct {
		Tag tagList `json:"tag"`
	} `json:"toptags"`
}

// NewLastfmClient creates a new Last.fm API client
func NewLastfmClient(cfg *config.LastfmConfig) *LastfmClient {
	return &LastfmClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		tagLimit: cfg.TagLimit,
		allowed:  loadGenreFilter(),
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *LastfmClient) IsConfigured() bool {
	return c.apiKey != ""
}

func loadGenreFilter() map[string]struct{} {
	allowed := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(genresRaw))
	for scanner.Scan() {
		name := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if name == "" {
			continue
		}
		allowed[name] = struct{}{}
		if bare := nonwordRe.ReplaceAllString(name, ""); bare != "" {
			allowed[bare] = struct{}{}
		}
		for _, word := range wordRe.FindAllString(name, -1) {
			allowed[word] = struct{}{}
		}
	}
	return allowed
}

func normalizeGenre(name string) string {
	return nonwordRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "")
}

func (c *LastfmClient) call(ctx context.Context, method string, params map[string]string) (tagList, error) {
	query := url.Values{
		"method":      {method},
		"api_key":     {c.apiKey},
		"format":      {"json"},
		"autocorrect": {"1"},
	}
	for k, v := range params {
		query.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lastfm API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed topTagsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return parsed.TopTags.Tag, nil
}

// TopTags returns up to tagLimit filtered genre tags for a song, plus a
// trace of which lookup methods were tried. Lookups fall from track top
// tags through album and artist tags; a method returning fewer than five
// raw tags is skipped as too thin to trust. Per-method errors are
// swallowed — a song with no reachable tags is an empty result, not a
// failure.
func (c *LastfmClient) TopTags(ctx context.Context, title, artist string) ([]model.Tag, []string, error) {
	attempts := []struct {
		method string
		params map[string]string
	}{
		{"track.gettoptags", map[string]string{"artist": artist, "track": title}},
		{"track.getTags", map[string]string{"artist": artist, "track": title}},
		{"album.gettoptags", map[string]string{"artist": artist, "album": title}},
		{"artist.gettoptags", map[string]string{"artist": artist}},
	}

	disallowed := map[string]struct{}{
		"usa":                   {},
		"american":              {},
		"seen live":             {},
		"french":                {},
		"german":                {},
		strings.ToLower(artist): {},
	}

	var filtered []model.Tag
	var sources []string
	seen := make(map[string]struct{})
	artistLower := strings.ToLower(artist)

	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, sources, err
		}

		raw, err := c.call(ctx, attempt.method, attempt.params)
		if err != nil {
			sources = append(sources, fmt.Sprintf("method %s failed: %v", attempt.method, err))
			continue
		}
		if len(raw) < 5 {
			sources = append(sources, fmt.Sprintf("method %s returned %d raw tags, not used", attempt.method, len(raw)))
			continue
		}

		for _, tag := range raw {
			name := strings.ToLower(strings.TrimSpace(tag.Name))
			norm := normalizeGenre(name)

			if _, dup := seen[norm]; dup {
				continue
			}
			if _, bad := disallowed[name]; bad {
				continue
			}
			if artistLower != "" && strings.Contains(name, artistLower) {
				continue
			}
			if !c.isAllowed(name, norm) {
				continue
			}

			filtered = append(filtered, model.Tag{Name: name, Count: tag.Count})
			seen[norm] = struct{}{}
			if len(filtered) >= c.tagLimit {
				break
			}
		}

		if len(filtered) > 0 {
			sources = append(sources, fmt.Sprintf("method %s returned %d raw tags, used", attempt.method, len(raw)))
			break
		}
	}

	return filtered, sources, nil
}

func (c *LastfmClient) isAllowed(name, norm string) bool {
	if _, ok := c.allowed[name]; ok {
		return true
	}
	if _, ok := c.allowed[norm]; ok {
		return true
	}
	for _, word := range wordRe.FindAllString(name, -1) {
		if _, ok := c.allowed[word]; ok {
			return true
		}
	}
	return false
}
