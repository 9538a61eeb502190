// Package worker runs the seeding loop: claim a queued track, fingerprint
// it, classify it and persist the verdict — all inside one database
// transaction per job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/ItsAltus/Worshipify/internal/classify"
	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/feature"
	"github.com/ItsAltus/Worshipify/internal/model"
	"github.com/ItsAltus/Worshipify/internal/store"
)

// TrackLookup resolves a queue track reference to track metadata.
type TrackLookup interface {
	Track(ctx context.Context, id string) (*model.Track, error)
}

// AudioSource turns a track's audio locator into local segment files.
type AudioSource interface {
	FetchSegments(ctx context.Context, track *model.Track, dir string) ([]string, error)
}

// FeatureAnalyzer measures one audio segment.
type FeatureAnalyzer interface {
	Analyze(ctx context.Context, path string) (*model.SegmentFeatures, error)
}

// TagSource fetches genre tags for a song.
type TagSource interface {
	TopTags(ctx context.Context, title, artist string) ([]model.Tag, []string, error)
}

// SeedWorker is one polling worker process. Multiple workers coordinate
// purely through the store's row locking — there is no shared in-process
// state between them.
type SeedWorker struct {
	store      *store.Store
	tracks     TrackLookup
	audio      AudioSource
	analyzer   FeatureAnalyzer
	tags       TagSource
	classifier *classify.Classifier

	id           int
	pollInterval time.Duration
	tempDir      string
}

// NewSeedWorker creates a worker with explicit dependencies; nothing here
// reaches for process-global clients.
func NewSeedWorker(
	id int,
	st *store.Store,
	tracks TrackLookup,
	audio AudioSource,
	analyzer FeatureAnalyzer,
	tags TagSource,
	classifier *classify.Classifier,
	cfg *config.WorkerConfig,
	tempDir string,
) *SeedWorker {
	poll := time.Duration(cfg.PollInterval) * time.Second
	if poll <= 0 {
		poll = 3 * time.Second
	}
	return &SeedWorker{
		store:        st,
		tracks:       tracks,
		audio:        audio,
		analyzer:     analyzer,
		tags:         tags,
		classifier:   classifier,
		id:           id,
		pollInterval: poll,
		tempDir:      tempDir,
	}
}

// Run polls until ctx is cancelled. An empty queue sleeps one poll
// interval; a lost claim race retries immediately; a store error backs
// off without touching queue state. A single job's failure never stops
// the loop.
func (w *SeedWorker) Run(ctx context.Context) error {
	log.Printf("[worker %d] started, polling every %s", w.id, w.pollInterval)
	for {
		if err := ctx.Err(); err != nil {
			log.Printf("[worker %d] shutting down", w.id)
			return err
		}

		err := w.RunOnce(ctx)
		switch {
		case err == nil:
			continue
		case errors.Is(err, store.ErrNoPendingJobs):
			if !w.sleep(ctx, w.pollInterval) {
				log.Printf("[worker %d] shutting down", w.id)
				return ctx.Err()
			}
		case errors.Is(err, store.ErrJobClaimed):
			continue
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			log.Printf("[worker %d] shutting down", w.id)
			return err
		default:
			log.Printf("[worker %d] iteration failed: %v", w.id, err)
			if !w.sleep(ctx, w.pollInterval) {
				return ctx.Err()
			}
		}
	}
}

// RunOnce claims and fully resolves one job inside a single transaction.
// If the process dies before commit the transaction rolls back and the
// job surfaces to other workers as pending again — the ISRC dedup check
// makes the re-run safe.
func (w *SeedWorker) RunOnce(ctx context.Context) error {
	return w.store.Transaction(ctx, func(tx *gorm.DB) error {
		job, err := w.store.ClaimNext(tx)
		if err != nil {
			return err
		}
		if err := w.store.MarkProcessing(tx, job.ID); err != nil {
			return err
		}
		log.Printf("[worker %d] processing job %d (track %s)", w.id, job.ID, job.TrackRef)

		result, perr := w.process(ctx, tx, job)
		if perr != nil {
			// An operator interrupt rolls the job back to pending;
			// everything else is a terminal failure on this job.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[worker %d] job %d failed: %v", w.id, job.ID, perr)
			return w.store.MarkFailed(tx, job.ID, perr.Error())
		}

		switch result.Outcome {
		case model.OutcomeAccepted:
			log.Printf("[worker %d] job %d accepted %q by %q", w.id, job.ID, result.Song.Title, result.Song.Artist)
			return w.store.MarkDone(tx, job.ID)
		default:
			log.Printf("[worker %d] job %d rejected (%s): %s", w.id, job.ID, result.Outcome, result.Reason)
			return w.store.MarkFailed(tx, job.ID, result.Reason)
		}
	})
}

// process runs the classification pipeline for one claimed job. Temp audio
// artifacts are scoped to the job and removed on every exit path.
func (w *SeedWorker) process(ctx context.Context, tx *gorm.DB, job *model.Job) (*model.Result, error) {
	dir, err := os.MkdirTemp(w.tempDir, "seed-job-")
	if err != nil {
		return nil, fmt.Errorf("creating job temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	track, err := w.tracks.Track(ctx, job.TrackRef)
	if err != nil {
		return nil, fmt.Errorf("track lookup: %w", err)
	}
	if track.ISRC == "" {
		return nil, fmt.Errorf("track %s has no ISRC, cannot dedup", track.ID)
	}

	exists, err := w.store.SongExists(tx, track.ISRC)
	if err != nil {
		return nil, err
	}
	if exists {
		return &model.Result{Outcome: model.OutcomeDuplicate, Reason: "song already exists"}, nil
	}

	paths, err := w.audio.FetchSegments(ctx, track, dir)
	if err != nil {
		return nil, fmt.Errorf("audio acquisition: %w", err)
	}

	segments := make([]model.SegmentFeatures, 0, len(paths))
	for _, path := range paths {
		raw, err := w.analyzer.Analyze(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("feature analysis: %w", err)
		}
		segments = append(segments, feature.Normalize(*raw))
	}

	merged, err := feature.Merge(segments)
	if err != nil {
		return nil, err
	}

	tags, _, err := w.tags.TopTags(ctx, track.Title, track.Artist)
	if err != nil {
		return nil, fmt.Errorf("tag retrieval: %w", err)
	}

	inCategory, keyword := w.classifier.Classify(tags)
	if !inCategory {
		return &model.Result{
			Outcome: model.OutcomeNotInCategory,
			Reason:  fmt.Sprintf("track %q by %q is not in the worship category", track.Title, track.Artist),
		}, nil
	}

	weighted := feature.Weight(merged)
	song := &model.AcceptedSong{
		TrackRef:             track.ID,
		ISRC:                 track.ISRC,
		Title:                track.Title,
		Artist:               track.Artist,
		TagCount:             len(tags),
		ClassificationMethod: fmt.Sprintf("%s:%s", classify.MethodLabel, keyword),
		RawFeatures:          merged.Vector(),
		WeightedFeatures:     weighted.Vector(),
	}
	if track.Album != "" {
		album := track.Album
		song.Album = &album
	}

	if err := w.store.InsertAcceptedSong(tx, song); err != nil {
		if errors.Is(err, store.ErrDuplicateSong) {
			return &model.Result{Outcome: model.OutcomeDuplicate, Reason: "song already exists"}, nil
		}
		return nil, err
	}
	if err := w.store.InsertTags(tx, track.ID, tags); err != nil {
		return nil, err
	}

	return &model.Result{Outcome: model.OutcomeAccepted, Song: song}, nil
}

// sleep waits for d or until ctx is done; it reports false on cancellation.
func (w *SeedWorker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
