package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsAltus/Worshipify/internal/classify"
	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/model"
	"github.com/ItsAltus/Worshipify/internal/store"
)

type fakeTracks struct {
	track *model.Track
	err   error
}

func (f *fakeTracks) Track(ctx context.Context, id string) (*model.Track, error) {
	if f.err != nil {
		return nil, f.err
	}
	t := *f.track
	t.ID = id
	return &t, nil
}

type fakeAudio struct {
	err     error
	cancel  context.CancelFunc
	lastDir string
	calls   int
}

func (f *fakeAudio) FetchSegments(ctx context.Context, track *model.Track, dir string) ([]string, error) {
	f.calls++
	f.lastDir = dir
	if f.cancel != nil {
		// simulate an operator interrupt arriving mid-download
		f.cancel()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	paths := make([]string, 2)
	for i := range paths {
		paths[i] = filepath.Join(dir, fmt.Sprintf("segment-%d.mp3", i))
		if err := os.WriteFile(paths[i], []byte("audio"), 0o644); err != nil {
			return nil, err
		}
	}
	return paths, nil
}

type fakeAnalyzer struct {
	features model.SegmentFeatures
	err      error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, path string) (*model.SegmentFeatures, error) {
	if f.err != nil {
		return nil, f.err
	}
	features := f.features
	return &features, nil
}

type fakeTags struct {
	tags []model.Tag
	err  error
}

func (f *fakeTags) TopTags(ctx context.Context, title, artist string) ([]model.Tag, []string, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.tags, []string{"track.getTopTags"}, nil
}

type workerFixture struct {
	worker   *SeedWorker
	store    *store.Store
	tracks   *fakeTracks
	audio    *fakeAudio
	analyzer *fakeAnalyzer
	tags     *fakeTags
}

func newFixture(t *testing.T) *workerFixture {
	t.Helper()

	st, err := store.Open(&config.DatabaseConfig{
		URL:          filepath.Join(t.TempDir(), "worker.sqlite3"),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	require.NoError(t, st.AutoMigrate())
	t.Cleanup(func() { st.Close() })

	f := &workerFixture{
		store: st,
		tracks: &fakeTracks{track: &model.Track{
			Title:        "Oceans",
			Artist:       "Hillsong UNITED",
			Album:        "Zion",
			ISRC:         "USUM71703861",
			AudioLocator: "ytsearch1:Oceans Hillsong UNITED official audio",
		}},
		audio:    &fakeAudio{},
		analyzer: &fakeAnalyzer{features: model.SegmentFeatures{
			Acousticness: 0.42,
			Danceability: 0.51,
			Energy:       0.63,
			Valence:      0.37,
			Speechiness:  0.04,
			Liveness:     0.12,
			Loudness:     -7.2,
			Tempo:        128,
		}},
		tags: &fakeTags{tags: []model.Tag{
			{Name: "worship", Count: 42},
			{Name: "rock", Count: 10},
		}},
	}
	f.worker = NewSeedWorker(
		1, st, f.tracks, f.audio, f.analyzer, f.tags,
		classify.New(), &config.WorkerConfig{PollInterval: 1}, "",
	)
	return f
}

func (f *workerFixture) enqueue(t *testing.T, ref string) *model.Job {
	t.Helper()
	job, err := f.store.Enqueue(ref, model.SourceManualSingle)
	require.NoError(t, err)
	return job
}

func (f *workerFixture) job(t *testing.T, id uint) model.Job {
	t.Helper()
	var job model.Job
	require.NoError(t, f.store.DB().First(&job, id).Error)
	return job
}

func (f *workerFixture) songCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.store.DB().Model(&model.AcceptedSong{}).Count(&count).Error)
	return count
}

func TestRunOnceAcceptsSong(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t, "track-1")

	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.job(t, job.ID)
	assert.Equal(t, model.JobStatusDone, got.Status)
	assert.Nil(t, got.LastError)

	var song model.AcceptedSong
	require.NoError(t, f.store.DB().Where("isrc = ?", "USUM71703861").First(&song).Error)
	assert.Equal(t, "track-1", song.TrackRef)
	assert.Equal(t, "Oceans", song.Title)
	assert.Equal(t, "lastfm-tag-keyword:worship", song.ClassificationMethod)
	assert.Equal(t, 2, song.TagCount)
	require.NotNil(t, song.Album)
	assert.Equal(t, "Zion", *song.Album)
	assert.Len(t, song.RawFeatures, 9)
	assert.Len(t, song.WeightedFeatures, 9)

	var tagCount int64
	require.NoError(t, f.store.DB().Model(&model.SongTag{}).Where("track_ref = ?", "track-1").Count(&tagCount).Error)
	assert.Equal(t, int64(2), tagCount)

	// job-scoped audio artifacts are gone
	require.NotEmpty(t, f.audio.lastDir)
	_, err := os.Stat(f.audio.lastDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunOnceRejectsNotInCategory(t *testing.T) {
	f := newFixture(t)
	f.tags.tags = []model.Tag{{Name: "indie rock", Count: 55}}
	job := f.enqueue(t, "track-1")

	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.job(t, job.ID)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "not in the worship category")
	assert.Equal(t, int64(0), f.songCount(t))

	_, err := os.Stat(f.audio.lastDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunOnceRejectsDuplicateBeforeDownload(t *testing.T) {
	f := newFixture(t)

	// same recording accepted earlier under another track reference
	first := f.enqueue(t, "track-1")
	require.NoError(t, f.worker.RunOnce(context.Background()))
	require.Equal(t, model.JobStatusDone, f.job(t, first.ID).Status)
	f.audio.calls = 0

	second := f.enqueue(t, "track-2")
	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.job(t, second.ID)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "song already exists", *got.LastError)
	assert.Equal(t, int64(1), f.songCount(t))

	// the ISRC pre-check fires before any audio is fetched
	assert.Equal(t, 0, f.audio.calls)
}

func TestRunOnceMissingISRC(t *testing.T) {
	f := newFixture(t)
	f.tracks.track.ISRC = ""
	job := f.enqueue(t, "track-1")

	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.job(t, job.ID)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "no ISRC")
	assert.Equal(t, 0, f.audio.calls)
}

func TestRunOnceAnalyzerFailure(t *testing.T) {
	f := newFixture(t)
	f.analyzer.err = errors.New("analysis service returned 500")
	job := f.enqueue(t, "track-1")

	require.NoError(t, f.worker.RunOnce(context.Background()))

	got := f.job(t, job.ID)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "feature analysis")
	assert.Equal(t, 1, got.AttemptCount)
	assert.Equal(t, int64(0), f.songCount(t))

	_, err := os.Stat(f.audio.lastDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunOnceEmptyQueue(t *testing.T) {
	f := newFixture(t)

	err := f.worker.RunOnce(context.Background())
	assert.ErrorIs(t, err, store.ErrNoPendingJobs)
}

func TestRunOnceInterruptRollsBackToPending(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t, "track-1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.audio.cancel = cancel

	err := f.worker.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// the claim transaction rolled back: no failed status, no attempt
	// bookkeeping, the job is simply pending again
	got := f.job(t, job.ID)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, 0, got.AttemptCount)
	assert.Equal(t, int64(0), f.songCount(t))

	_, serr := os.Stat(f.audio.lastDir)
	assert.True(t, os.IsNotExist(serr))
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
