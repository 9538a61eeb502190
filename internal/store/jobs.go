package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ItsAltus/Worshipify/internal/model"
)

var (
	// ErrNoPendingJobs means no unlocked pending row exists right now.
	ErrNoPendingJobs = errors.New("no pending jobs")

	// ErrJobClaimed means another worker won the race for the same row;
	// the caller should roll back and claim again.
	ErrJobClaimed = errors.New("job already claimed by another worker")

	// ErrAlreadyQueued means the track already has a pending or
	// processing job, so enqueueing it again would double the work.
	ErrAlreadyQueued = errors.New("track is already queued")
)

// ClaimNext selects the oldest pending job within tx. On postgres the row
// is locked with FOR UPDATE SKIP LOCKED so rows held by other in-flight
// transactions are invisible rather than blocking. The status flip is a
// separate call: a failure between claim and MarkProcessing leaves nothing
// to undo beyond the rollback itself.
func (s *Store) ClaimNext(tx *gorm.DB) (*model.Job, error) {
	q := tx.
		Where("status = ?", model.JobStatusPending).
		Order("enqueued_at ASC, id ASC")
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var job model.Job
	if err := q.First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingJobs
		}
		return nil, fmt.Errorf("claiming next job: %w", err)
	}
	return &job, nil
}

// MarkProcessing flips the claimed job to processing and clears its last
// error. The status guard makes the flip a compare-and-set, so on engines
// without skip-locked selects two racing claims still resolve to exactly
// one winner.
func (s *Store) MarkProcessing(tx *gorm.DB, jobID uint) error {
	res := tx.Model(&model.Job{}).
		Where("id = ? AND status = ?", jobID, model.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     model.JobStatusProcessing,
			"last_error": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("marking job %d processing: %w", jobID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrJobClaimed
	}
	return nil
}

// MarkDone records a successful run.
func (s *Store) MarkDone(tx *gorm.DB, jobID uint) error {
	err := tx.Model(&model.Job{}).
		Where("id = ?", jobID).
		Update("status", model.JobStatusDone).Error
	if err != nil {
		return fmt.Errorf("marking job %d done: %w", jobID, err)
	}
	return nil
}

// MarkFailed records any terminal non-success outcome — real errors and
// expected business rejections alike — so operators can tell "never
// processed" from "processed and rejected". Failed jobs are terminal; a
// retry is a fresh enqueue.
func (s *Store) MarkFailed(tx *gorm.DB, jobID uint, message string) error {
	now := time.Now()
	res := tx.Model(&model.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":          model.JobStatusFailed,
			"last_error":      message,
			"last_attempt_at": now,
			"attempt_count":   gorm.Expr("attempt_count + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("marking job %d failed: %w", jobID, res.Error)
	}
	return nil
}

// Enqueue inserts one pending job for trackRef. Tracks with a live
// (pending or processing) job are rejected; failed or done tracks may be
// re-enqueued as brand-new jobs.
func (s *Store) Enqueue(trackRef, source string) (*model.Job, error) {
	var job model.Job
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var live int64
		err := tx.Model(&model.Job{}).
			Where("track_ref = ? AND status IN ?", trackRef,
				[]model.JobStatus{model.JobStatusPending, model.JobStatusProcessing}).
			Count(&live).Error
		if err != nil {
			return fmt.Errorf("checking queue for track %s: %w", trackRef, err)
		}
		if live > 0 {
			return ErrAlreadyQueued
		}

		job = model.Job{
			TrackRef: trackRef,
			Source:   source,
			Status:   model.JobStatusPending,
		}
		if err := tx.Create(&job).Error; err != nil {
			return fmt.Errorf("enqueueing track %s: %w", trackRef, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns queue rows oldest first, optionally filtered by status.
func (s *Store) ListJobs(status model.JobStatus) ([]model.Job, error) {
	q := s.db.Order("enqueued_at ASC, id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var jobs []model.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}
