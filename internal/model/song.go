package model

import "time"

// Track is the metadata returned by the track lookup service for one
// candidate recording.
type Track struct {
	ID           string `json:"trackId"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album,omitempty"`
	ISRC         string `json:"isrc"`
	SpotifyURL   string `json:"spotifyUrl,omitempty"`
	PreviewURL   string `json:"previewUrl,omitempty"`
	AlbumArt     string `json:"albumArt,omitempty"`
	AudioLocator string `json:"-"`
}

// Tag is one (name, count) genre tag from the tag service.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AcceptedSong is the persisted record of a song that passed classification.
// The ISRC is the dedup key: one row per underlying recording, ever.
type AcceptedSong struct {
	ID                   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TrackRef             string    `gorm:"not null;index:idx_song_track" json:"trackRef"`
	ISRC                 string    `gorm:"not null;uniqueIndex:idx_song_isrc" json:"isrc"`
	Title                string    `gorm:"not null" json:"title"`
	Artist               string    `gorm:"not null" json:"artist"`
	Album                *string   `json:"album,omitempty"`
	TagCount             int       `json:"tagCount"`
	ClassificationMethod string    `json:"classificationMethod"`
	RawFeatures          []float64 `gorm:"serializer:json" json:"rawFeatures"`
	WeightedFeatures     []float64 `gorm:"serializer:json" json:"weightedFeatures"`
	IndexVersion         int       `gorm:"not null;default:0" json:"indexVersion"`
	IndexedAt            *time.Time `json:"indexedAt,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func (AcceptedSong) TableName() string {
	return "accepted_songs"
}

// SongTag associates one normalized tag with an accepted song. Inserts are
// idempotent on (track_ref, tag).
type SongTag struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	TrackRef string `gorm:"not null;uniqueIndex:idx_track_tag,priority:1" json:"trackRef"`
	Tag      string `gorm:"not null;uniqueIndex:idx_track_tag,priority:2" json:"tag"`
	Count    int    `json:"count"`
}

func (SongTag) TableName() string {
	return "song_tags"
}
