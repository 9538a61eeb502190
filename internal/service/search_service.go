package service

import (
	"context"

	"github.com/ItsAltus/Worshipify/internal/client"
	"github.com/ItsAltus/Worshipify/internal/model"
)

// SearchService resolves a secular song to its track metadata and filtered
// genre tags for the public search endpoint.
type SearchService struct {
	spotify *client.SpotifyClient
	lastfm  *client.LastfmClient
}

func NewSearchService(spotify *client.SpotifyClient, lastfm *client.LastfmClient) *SearchService {
	return &SearchService{
		spotify: spotify,
		lastfm:  lastfm,
	}
}

// Search finds the best matching track and its tags. Tag retrieval
// failures degrade to an empty tag list rather than failing the search.
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	track, err := s.spotify.SearchTrack(ctx, req.Song, req.Artist)
	if err != nil {
		return nil, err
	}

	tags, sources, err := s.lastfm.TopTags(ctx, track.Title, track.Artist)
	if err != nil {
		tags = nil
	}

	return &model.SearchResponse{
		Track:      track,
		Tags:       tags,
		TagSources: sources,
	}, nil
}
