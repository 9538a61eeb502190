package feature

import (
	"errors"
	"math"

	"github.com/ItsAltus/Worshipify/internal/model"
)

// epsilon substitutes a zero total-energy denominator so a merge over
// all-silent segments never divides by zero.
const epsilon = 1e-6

// ErrNoSegments is returned when Merge is called with an empty input.
var ErrNoSegments = errors.New("no segments to merge")

// normalizeBPM folds octave-doubling errors from the analysis service back
// into the [60,200] range. A tempo of exactly 0 stays 0.
func normalizeBPM(bpm float64) float64 {
	if bpm == 0 {
		return 0
	}
	for bpm < 60 {
		bpm *= 2
	}
	for bpm > 200 {
		bpm /= 2
	}
	return bpm
}

// Merge combines N normalized segments into one song-level feature vector.
//
// Per segment it first folds the tempo into [60,200] and clamps
// acousticness to at most 0.3 when energy > 0.5 and instrumentalness < 0.1
// (loud, non-instrumental segments are judged unlikely to be genuinely
// acoustic — a deliberate bias). Every field except tempo is then the
// energy-weighted average across segments, rounded to two decimals.
func Merge(segments []model.SegmentFeatures) (model.SongFeatures, error) {
	if len(segments) == 0 {
		return model.SongFeatures{}, ErrNoSegments
	}

	segs := make([]model.SegmentFeatures, len(segments))
	copy(segs, segments)
	for i := range segs {
		segs[i].Tempo = normalizeBPM(segs[i].Tempo)
		if segs[i].Energy > 0.5 && segs[i].Instrumentalness < 0.1 && segs[i].Acousticness > 0.3 {
			segs[i].Acousticness = 0.3
		}
	}

	totalEnergy := 0.0
	for _, s := range segs {
		totalEnergy += s.Energy
	}
	if totalEnergy == 0 {
		totalEnergy = epsilon
	}

	avg := func(pick func(model.SegmentFeatures) float64) float64 {
		sum := 0.0
		for _, s := range segs {
			sum += pick(s) * s.Energy
		}
		return round2(sum / totalEnergy)
	}

	return model.SongFeatures{
		Acousticness:     avg(func(s model.SegmentFeatures) float64 { return s.Acousticness }),
		Danceability:     avg(func(s model.SegmentFeatures) float64 { return s.Danceability }),
		Energy:           avg(func(s model.SegmentFeatures) float64 { return s.Energy }),
		Valence:          avg(func(s model.SegmentFeatures) float64 { return s.Valence }),
		Instrumentalness: avg(func(s model.SegmentFeatures) float64 { return s.Instrumentalness }),
		Speechiness:      avg(func(s model.SegmentFeatures) float64 { return s.Speechiness }),
		Liveness:         avg(func(s model.SegmentFeatures) float64 { return s.Liveness }),
		Loudness:         avg(func(s model.SegmentFeatures) float64 { return s.Loudness }),
		Tempo:            selectTempo(segs, totalEnergy),
	}, nil
}

// selectTempo picks the song tempo as the energy-weighted average of the
// (already octave-folded) segment tempos, rounded to the nearest integer.
// An older two-segment variant matched against a 120 BPM reference with an
// energy tie-break instead; the N-segment average replaced it because the
// reference rule discards real tempo information when segments diverge.
func selectTempo(segs []model.SegmentFeatures, totalEnergy float64) float64 {
	sum := 0.0
	for _, s := range segs {
		sum += s.Tempo * s.Energy
	}
	return math.Round(sum / totalEnergy)
}
