package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsAltus/Worshipify/internal/config"
)

func newTestLastfm(t *testing.T, handler http.HandlerFunc) *LastfmClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewLastfmClient(&config.LastfmConfig{
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		TagLimit: 5,
	})
}

func tagsJSON(names ...string) string {
	items := make([]string, len(names))
	for i, name := range names {
		items[i] = fmt.Sprintf(`{"name":%q,"count":%d}`, name, 100-i)
	}
	return `{"toptags":{"tag":[` + strings.Join(items, ",") + `]}}`
}

func TestTopTagsFiltersToAllowedGenres(t *testing.T) {
	c := newTestLastfm(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		fmt.Fprint(w, tagsJSON("Worship", "seen live", "USA", "Gospel", "favourite", "Hillsong UNITED songs"))
	})

	tags, sources, err := c.TopTags(context.Background(), "Oceans", "Hillsong UNITED")
	require.NoError(t, err)

	require.Len(t, tags, 2)
	assert.Equal(t, "worship", tags[0].Name)
	assert.Equal(t, "gospel", tags[1].Name)
	require.NotEmpty(t, sources)
	assert.Contains(t, sources[0], "track.gettoptags")
	assert.Contains(t, sources[0], "used")
}

func TestTopTagsFallsBackThroughMethods(t *testing.T) {
	var methods []string
	c := newTestLastfm(t, func(w http.ResponseWriter, r *http.Request) {
		method := r.URL.Query().Get("method")
		methods = append(methods, method)
		switch method {
		case "track.gettoptags":
			// too thin to trust
			fmt.Fprint(w, tagsJSON("worship"))
		case "track.getTags":
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		case "album.gettoptags":
			fmt.Fprint(w, tagsJSON("ccm", "christian rock", "pop", "usa", "seen live"))
		default:
			t.Errorf("unexpected method %q", method)
		}
	})

	tags, sources, err := c.TopTags(context.Background(), "Oceans", "Hillsong UNITED")
	require.NoError(t, err)

	assert.Equal(t, []string{"track.gettoptags", "track.getTags", "album.gettoptags"}, methods)
	require.Len(t, tags, 3)
	assert.Equal(t, "ccm", tags[0].Name)

	require.Len(t, sources, 3)
	assert.Contains(t, sources[0], "not used")
	assert.Contains(t, sources[1], "failed")
	assert.Contains(t, sources[2], "used")
}

func TestTopTagsCapsAtTagLimit(t *testing.T) {
	c := newTestLastfm(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tagsJSON("rock", "pop", "worship", "gospel", "ccm", "indie", "folk", "jazz"))
	})

	tags, _, err := c.TopTags(context.Background(), "Oceans", "Hillsong UNITED")
	require.NoError(t, err)
	assert.Len(t, tags, 5)
}

func TestTopTagsDedupesNormalizedNames(t *testing.T) {
	c := newTestLastfm(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tagsJSON("Hip Hop", "hip-hop", "hiphop", "rock", "pop"))
	})

	tags, _, err := c.TopTags(context.Background(), "Oceans", "Hillsong UNITED")
	require.NoError(t, err)

	require.Len(t, tags, 3)
	assert.Equal(t, "hip hop", tags[0].Name)
	assert.Equal(t, "rock", tags[1].Name)
	assert.Equal(t, "pop", tags[2].Name)
}

func TestTopTagsSingleTagObject(t *testing.T) {
	// Last.fm returns a bare object instead of a one-element array
	c := newTestLastfm(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("method") == "artist.gettoptags" {
			fmt.Fprint(w, tagsJSON("worship", "gospel", "pop", "rock", "ccm"))
			return
		}
		fmt.Fprint(w, `{"toptags":{"tag":{"name":"worship","count":10}}}`)
	})

	tags, _, err := c.TopTags(context.Background(), "Oceans", "Hillsong UNITED")
	require.NoError(t, err)

	// the single-object responses parse but are too thin, so the artist
	// method ends up supplying the tags
	require.Len(t, tags, 5)
	assert.Equal(t, "worship", tags[0].Name)
}

func TestTopTagsAllMethodsEmpty(t *testing.T) {
	c := newTestLastfm(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"toptags":{"tag":[]}}`)
	})

	tags, sources, err := c.TopTags(context.Background(), "Unknown", "Nobody")
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.Len(t, sources, 4)
}

func TestTopTagsHonorsContextCancellation(t *testing.T) {
	c := newTestLastfm(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"toptags":{"tag":[]}}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.TopTags(ctx, "Oceans", "Hillsong UNITED")
	assert.ErrorIs(t, err, context.Canceled)
}
