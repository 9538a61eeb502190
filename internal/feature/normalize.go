// Package feature implements the numeric pipeline that turns raw
// per-segment audio measurements into one canonical feature vector per
// song: normalization, weighted merging and similarity weighting.
package feature

import (
	"math"

	"github.com/ItsAltus/Worshipify/internal/model"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// floor2 truncates toward zero at the hundredths place.
func floor2(v float64) float64 {
	return math.Floor(v*100) / 100
}

// Normalize rounds one raw segment into the canonical per-segment shape.
// Instrumentalness and speechiness are floored, never rounded up: the
// analysis API reports tiny non-zero values for clearly vocal tracks and
// rounding those up would overstate them. The unrounded tempo is kept for
// diagnostics. Out-of-range values are passed through untouched.
func Normalize(raw model.SegmentFeatures) model.SegmentFeatures {
	return model.SegmentFeatures{
		Acousticness:     round2(raw.Acousticness),
		Danceability:     round2(raw.Danceability),
		Energy:           round2(raw.Energy),
		Valence:          round2(raw.Valence),
		Instrumentalness: floor2(raw.Instrumentalness),
		Speechiness:      floor2(raw.Speechiness),
		Liveness:         round2(raw.Liveness),
		Loudness:         round1(raw.Loudness),
		Tempo:            math.Round(raw.Tempo),
		OriginalTempo:    raw.Tempo,
	}
}
