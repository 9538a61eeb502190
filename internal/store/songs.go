package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ItsAltus/Worshipify/internal/model"
)

// ErrDuplicateSong means the recording (by ISRC) is already in
// accepted_songs. Callers treat this as a business rejection, not a fault.
var ErrDuplicateSong = errors.New("song already exists")

// SongExists reports whether a recording with this ISRC is already
// accepted. Used as a cheap pre-check before any audio is downloaded; the
// unique constraint on insert remains the authority.
func (s *Store) SongExists(tx *gorm.DB, isrc string) (bool, error) {
	var count int64
	err := tx.Model(&model.AcceptedSong{}).Where("isrc = ?", isrc).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking for existing song: %w", err)
	}
	return count > 0, nil
}

// InsertAcceptedSong persists one accepted song. A unique-constraint hit
// on the ISRC comes back as ErrDuplicateSong. The insert runs under a
// savepoint: without it a constraint violation would poison the enclosing
// claim transaction on postgres and the job could no longer be finalized.
func (s *Store) InsertAcceptedSong(tx *gorm.DB, song *model.AcceptedSong) error {
	if err := tx.SavePoint("insert_accepted_song").Error; err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}
	if err := tx.Create(song).Error; err != nil {
		if isDuplicateErr(err) {
			if err := tx.RollbackTo("insert_accepted_song").Error; err != nil {
				return fmt.Errorf("rolling back to savepoint: %w", err)
			}
			return ErrDuplicateSong
		}
		return fmt.Errorf("inserting accepted song: %w", err)
	}
	return nil
}

// InsertTags stores the song's tags with insert-or-ignore semantics on
// (track_ref, tag). Tag names are lowercased and trimmed first.
func (s *Store) InsertTags(tx *gorm.DB, trackRef string, tags []model.Tag) error {
	rows := make([]model.SongTag, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		rows = append(rows, model.SongTag{TrackRef: trackRef, Tag: name, Count: t.Count})
	}
	if len(rows) == 0 {
		return nil
	}

	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("inserting song tags: %w", err)
	}
	return nil
}

func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
