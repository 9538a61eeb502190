package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ItsAltus/Worshipify/internal/client"
	"github.com/ItsAltus/Worshipify/internal/model"
	"github.com/ItsAltus/Worshipify/internal/store"
)

// QueueService validates and enqueues candidate tracks. Albums and
// playlists are expanded to their member tracks before enqueueing.
type QueueService struct {
	store   *store.Store
	spotify *client.SpotifyClient
}

func NewQueueService(st *store.Store, spotify *client.SpotifyClient) *QueueService {
	return &QueueService{
		store:   st,
		spotify: spotify,
	}
}

// EnqueueTrack validates one Spotify track ID and inserts a pending job.
func (s *QueueService) EnqueueTrack(ctx context.Context, trackID string) (*model.EnqueueResponse, error) {
	ok, err := s.spotify.ValidateTrack(ctx, trackID)
	if err != nil {
		return nil, fmt.Errorf("validating track %s: %w", trackID, err)
	}
	if !ok {
		return nil, client.ErrTrackNotFound
	}

	job, err := s.store.Enqueue(trackID, model.SourceManualSingle)
	if err != nil {
		return nil, err
	}
	return &model.EnqueueResponse{
		Enqueued: 1,
		Source:   model.SourceManualSingle,
		Jobs:     []model.Job{*job},
	}, nil
}

// EnqueueAlbum expands an album into one job per track. Tracks already
// queued are skipped, not errors.
func (s *QueueService) EnqueueAlbum(ctx context.Context, albumID string) (*model.EnqueueResponse, error) {
	ids, err := s.spotify.AlbumTracks(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("expanding album %s: %w", albumID, err)
	}
	return s.enqueueAll(ids, model.SourceManualAlbum)
}

// EnqueuePlaylist expands a playlist into one job per track.
func (s *QueueService) EnqueuePlaylist(ctx context.Context, playlistID string) (*model.EnqueueResponse, error) {
	ids, err := s.spotify.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("expanding playlist %s: %w", playlistID, err)
	}
	return s.enqueueAll(ids, model.SourceManualPlaylist)
}

func (s *QueueService) enqueueAll(trackIDs []string, source string) (*model.EnqueueResponse, error) {
	resp := &model.EnqueueResponse{Source: source}
	for _, id := range trackIDs {
		job, err := s.store.Enqueue(id, source)
		if err != nil {
			if errors.Is(err, store.ErrAlreadyQueued) {
				continue
			}
			return nil, err
		}
		resp.Enqueued++
		resp.Jobs = append(resp.Jobs, *job)
	}
	return resp, nil
}

// List returns queue rows, optionally filtered by status.
func (s *QueueService) List(status model.JobStatus) ([]model.Job, error) {
	return s.store.ListJobs(status)
}
