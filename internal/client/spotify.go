package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/model"
)

// ErrTrackNotFound is returned when Spotify has no track for the query or ID.
var ErrTrackNotFound = errors.New("track not found")

// SpotifyClient handles track lookup against the Spotify Web API using the
// client-credentials flow. The access token is cached until shortly before
// expiry and refreshed under a mutex.
type SpotifyClient struct {
	httpClient   *http.Client
	baseURL      string
	authURL      string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type spotifyTrack struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	PreviewURL string `json:"preview_url"`
}

// NewSpotifyClient creates a new Spotify API client
func NewSpotifyClient(cfg *config.SpotifyConfig) *SpotifyClient {
	return &SpotifyClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:      cfg.BaseURL,
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *SpotifyClient) IsConfigured() bool {
	return c.clientID != "" && c.clientSecret != ""
}

func (c *SpotifyClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+creds)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("spotify auth error (status %d): %s", resp.StatusCode, string(body))
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}

	c.token = tok.AccessToken
	// renew a minute early to dodge mid-request expiry
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return c.token, nil
}

func (c *SpotifyClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return ErrTrackNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func toTrack(st *spotifyTrack) *model.Track {
	artist := ""
	if len(st.Artists) > 0 {
		artist = st.Artists[0].Name
	}
	albumArt := ""
	if len(st.Album.Images) > 0 {
		albumArt = st.Album.Images[0].URL
	}
	return &model.Track{
		ID:           st.ID,
		Title:        st.Name,
		Artist:       artist,
		Album:        st.Album.Name,
		ISRC:         st.ExternalIDs.ISRC,
		SpotifyURL:   st.ExternalURLs.Spotify,
		PreviewURL:   st.PreviewURL,
		AlbumArt:     albumArt,
		AudioLocator: fmt.Sprintf("ytsearch1:%s %s official audio", st.Name, artist),
	}
}

// Track fetches metadata for a track by its Spotify ID.
func (c *SpotifyClient) Track(ctx context.Context, id string) (*model.Track, error) {
	var st spotifyTrack
	if err := c.get(ctx, "/tracks/"+id, nil, &st); err != nil {
		return nil, err
	}
	if st.ID == "" {
		return nil, ErrTrackNotFound
	}
	return toTrack(&st), nil
}

// SearchTrack returns metadata for the best matching track.
func (c *SpotifyClient) SearchTrack(ctx context.Context, song, artist string) (*model.Track, error) {
	q := fmt.Sprintf("track:%q", song)
	if artist != "" {
		q += fmt.Sprintf(" artist:%q", artist)
	}
	query := url.Values{
		"q":     {q},
		"type":  {"track"},
		"limit": {"1"},
	}

	var result struct {
		Tracks struct {
			Items []spotifyTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := c.get(ctx, "/search", query, &result); err != nil {
		return nil, err
	}
	if len(result.Tracks.Items) == 0 {
		return nil, ErrTrackNotFound
	}
	return toTrack(&result.Tracks.Items[0]), nil
}

// AlbumTracks returns the track IDs of an album, in album order.
func (c *SpotifyClient) AlbumTracks(ctx context.Context, albumID string) ([]string, error) {
	var ids []string
	offset := 0
	for {
		query := url.Values{
			"limit":  {"50"},
			"offset": {fmt.Sprintf("%d", offset)},
		}
		var page struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
			Next string `json:"next"`
		}
		if err := c.get(ctx, "/albums/"+albumID+"/tracks", query, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			ids = append(ids, item.ID)
		}
		if page.Next == "" || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}
	return ids, nil
}

// PlaylistTracks returns the track IDs of a playlist, in playlist order.
// Local files and removed tracks come back with empty IDs and are skipped.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, playlistID string) ([]string, error) {
	var ids []string
	offset := 0
	for {
		query := url.Values{
			"limit":  {"100"},
			"offset": {fmt.Sprintf("%d", offset)},
			"fields": {"items(track(id)),next"},
		}
		var page struct {
			Items []struct {
				Track struct {
					ID string `json:"id"`
				} `json:"track"`
			} `json:"items"`
			Next string `json:"next"`
		}
		if err := c.get(ctx, "/playlists/"+playlistID+"/tracks", query, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.Track.ID != "" {
				ids = append(ids, item.Track.ID)
			}
		}
		if page.Next == "" || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}
	return ids, nil
}

// ValidateTrack reports whether the given Spotify track ID resolves.
func (c *SpotifyClient) ValidateTrack(ctx context.Context, id string) (bool, error) {
	_, err := c.Track(ctx, id)
	if errors.Is(err, ErrTrackNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
