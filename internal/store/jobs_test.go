package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(&config.DatabaseConfig{
		URL:          filepath.Join(t.TempDir(), "test.sqlite3"),
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	require.NoError(t, st.AutoMigrate())
	t.Cleanup(func() { st.Close() })
	return st
}

func getJob(t *testing.T, st *Store, id uint) model.Job {
	t.Helper()
	var job model.Job
	require.NoError(t, st.DB().First(&job, id).Error)
	return job
}

func TestEnqueueAndList(t *testing.T) {
	st := openTestStore(t)

	first, err := st.Enqueue("track-1", model.SourceManualSingle)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, first.Status)
	assert.NotZero(t, first.ID)

	_, err = st.Enqueue("track-2", model.SourceManualAlbum)
	require.NoError(t, err)

	jobs, err := st.ListJobs("")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "track-1", jobs[0].TrackRef)
	assert.Equal(t, "track-2", jobs[1].TrackRef)

	pending, err := st.ListJobs(model.JobStatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	done, err := st.ListJobs(model.JobStatusDone)
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestEnqueueRejectsLiveDuplicate(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job, err := st.Enqueue("track-1", model.SourceManualSingle)
	require.NoError(t, err)

	_, err = st.Enqueue("track-1", model.SourceManualPlaylist)
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	// still rejected while processing
	err = st.Transaction(ctx, func(tx *gorm.DB) error {
		return st.MarkProcessing(tx, job.ID)
	})
	require.NoError(t, err)
	_, err = st.Enqueue("track-1", model.SourceManualSingle)
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	// a failed job is terminal; the track may be queued again
	err = st.Transaction(ctx, func(tx *gorm.DB) error {
		return st.MarkFailed(tx, job.ID, "boom")
	})
	require.NoError(t, err)
	_, err = st.Enqueue("track-1", model.SourceManualSingle)
	assert.NoError(t, err)
}

func TestClaimNextEmptyQueue(t *testing.T) {
	st := openTestStore(t)

	err := st.Transaction(context.Background(), func(tx *gorm.DB) error {
		_, err := st.ClaimNext(tx)
		return err
	})
	assert.ErrorIs(t, err, ErrNoPendingJobs)
}

func TestClaimLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	older, err := st.Enqueue("track-old", model.SourceManualSingle)
	require.NoError(t, err)
	_, err = st.Enqueue("track-new", model.SourceManualSingle)
	require.NoError(t, err)

	err = st.Transaction(ctx, func(tx *gorm.DB) error {
		job, err := st.ClaimNext(tx)
		if err != nil {
			return err
		}
		assert.Equal(t, older.ID, job.ID, "claim must take the oldest pending job")
		if err := st.MarkProcessing(tx, job.ID); err != nil {
			return err
		}
		return st.MarkDone(tx, job.ID)
	})
	require.NoError(t, err)

	assert.Equal(t, model.JobStatusDone, getJob(t, st, older.ID).Status)

	pending, err := st.ListJobs(model.JobStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "track-new", pending[0].TrackRef)
}

func TestMarkProcessingLosesRace(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job, err := st.Enqueue("track-1", model.SourceManualSingle)
	require.NoError(t, err)

	// simulate another worker having flipped the row first
	require.NoError(t, st.DB().Model(&model.Job{}).
		Where("id = ?", job.ID).
		Update("status", model.JobStatusProcessing).Error)

	err = st.Transaction(ctx, func(tx *gorm.DB) error {
		return st.MarkProcessing(tx, job.ID)
	})
	assert.ErrorIs(t, err, ErrJobClaimed)
}

func TestMarkFailedBookkeeping(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job, err := st.Enqueue("track-1", model.SourceManualSingle)
	require.NoError(t, err)

	err = st.Transaction(ctx, func(tx *gorm.DB) error {
		if err := st.MarkProcessing(tx, job.ID); err != nil {
			return err
		}
		return st.MarkFailed(tx, job.ID, "song is not in the worship category")
	})
	require.NoError(t, err)

	got := getJob(t, st, job.ID)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "song is not in the worship category", *got.LastError)
	assert.NotNil(t, got.LastAttemptAt)
}

func TestMarkProcessingClearsPreviousError(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	job, err := st.Enqueue("track-1", model.SourceManualSingle)
	require.NoError(t, err)

	err = st.Transaction(ctx, func(tx *gorm.DB) error {
		return st.MarkFailed(tx, job.ID, "transient upstream error")
	})
	require.NoError(t, err)

	// put it back in the queue and reclaim
	require.NoError(t, st.DB().Model(&model.Job{}).
		Where("id = ?", job.ID).
		Update("status", model.JobStatusPending).Error)
	err = st.Transaction(ctx, func(tx *gorm.DB) error {
		return st.MarkProcessing(tx, job.ID)
	})
	require.NoError(t, err)

	got := getJob(t, st, job.ID)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	assert.Nil(t, got.LastError)
	assert.Equal(t, 1, got.AttemptCount, "attempt count survives the reclaim")
}

func TestRollbackRestoresPending(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("interrupted")

	job, err := st.Enqueue("track-1", model.SourceManualSingle)
	require.NoError(t, err)

	err = st.Transaction(ctx, func(tx *gorm.DB) error {
		claimed, err := st.ClaimNext(tx)
		if err != nil {
			return err
		}
		if err := st.MarkProcessing(tx, claimed.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// the rollback leaves no trace of the aborted attempt
	got := getJob(t, st, job.ID)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, 0, got.AttemptCount)
}

// TestConcurrentClaimExactlyOnce drains a queue of 100 jobs with 8 workers
// and verifies every job is processed exactly once.
func TestConcurrentClaimExactlyOnce(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	const jobCount = 100
	const workerCount = 8

	for i := 0; i < jobCount; i++ {
		_, err := st.Enqueue(fmt.Sprintf("track-%03d", i), model.SourceManualPlaylist)
		require.NoError(t, err)
	}

	var (
		mu     sync.Mutex
		claims = make(map[uint]int)
	)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for attempts := 0; attempts < jobCount*20; attempts++ {
				var claimedID uint
				err := st.Transaction(ctx, func(tx *gorm.DB) error {
					job, err := st.ClaimNext(tx)
					if err != nil {
						return err
					}
					if err := st.MarkProcessing(tx, job.ID); err != nil {
						return err
					}
					claimedID = job.ID
					return st.MarkDone(tx, job.ID)
				})
				switch {
				case err == nil:
					// only committed claims count
					mu.Lock()
					claims[claimedID]++
					mu.Unlock()
				case errors.Is(err, ErrNoPendingJobs):
					return
				case errors.Is(err, ErrJobClaimed):
					// lost the race, claim again
				default:
					// transient lock contention, retry
				}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, claims, jobCount)
	for id, n := range claims {
		assert.Equalf(t, 1, n, "job %d was processed %d times", id, n)
	}

	done, err := st.ListJobs(model.JobStatusDone)
	require.NoError(t, err)
	assert.Len(t, done, jobCount)

	pending, err := st.ListJobs(model.JobStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
