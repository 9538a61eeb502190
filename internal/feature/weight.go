package feature

import (
	"math"

	"github.com/ItsAltus/Worshipify/internal/model"
)

// Per-field multipliers for the similarity metric space. Valence and
// energy dominate on purpose: mood match matters more than texture when
// ranking worship counterparts.
const (
	weightAcousticness     = 1.0
	weightDanceability     = 1.9
	weightEnergy           = 2.1
	weightValence          = 2.5
	weightInstrumentalness = 1.5
	weightSpeechiness      = 0.8
	weightLiveness         = 0.3
	weightLoudness         = 0.2
	weightTempo            = 3.2
)

// Tempo reference band for the log rescale.
const (
	tempoFloor   = 40.0
	tempoCeil    = 240.0
	tempoBandLow = 80.0
	tempoBandTop = 200.0
)

// Weight maps a merged feature vector into the shared metric space used
// for similarity ranking. Loudness is affine-rescaled from its decibel
// range; tempo is log-rescaled against the 80–200 BPM band so an octave
// apart counts the same everywhere on the scale.
func Weight(f model.SongFeatures) model.SongFeatures {
	return model.SongFeatures{
		Acousticness:     f.Acousticness * weightAcousticness,
		Danceability:     f.Danceability * weightDanceability,
		Energy:           f.Energy * weightEnergy,
		Valence:          f.Valence * weightValence,
		Instrumentalness: f.Instrumentalness * weightInstrumentalness,
		Speechiness:      f.Speechiness * weightSpeechiness,
		Liveness:         f.Liveness * weightLiveness,
		Loudness:         (f.Loudness + 16) / 12 * weightLoudness,
		Tempo:            scaleTempo(f.Tempo) * weightTempo,
	}
}

func scaleTempo(bpm float64) float64 {
	t := math.Min(math.Max(bpm, tempoFloor), tempoCeil)
	return (math.Log(t) - math.Log(tempoBandLow)) / (math.Log(tempoBandTop) - math.Log(tempoBandLow))
}
