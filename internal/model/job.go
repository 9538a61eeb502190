package model

import "time"

// JobStatus is the lifecycle state of a seeding job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// Job sources — how a track ended up in the queue
const (
	SourceManualSingle   = "manual-single"
	SourceManualAlbum    = "manual-album"
	SourceManualPlaylist = "manual-playlist"
)

// Job is one unit of seeding work: evaluate a single candidate track.
// Rows live in the populate_queue table and are only mutated by a worker
// inside its claim transaction.
type Job struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	TrackRef      string     `gorm:"not null;index:idx_queue_track" json:"trackRef"`
	Source        string     `gorm:"not null" json:"source"`
	Status        JobStatus  `gorm:"not null;default:pending;index:idx_queue_status" json:"status"`
	EnqueuedAt    time.Time  `gorm:"autoCreateTime" json:"enqueuedAt"`
	AttemptCount  int        `gorm:"not null;default:0" json:"attemptCount"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	LastError     *string    `json:"lastError,omitempty"`
}

func (Job) TableName() string {
	return "populate_queue"
}
