package model

// SegmentFeatures holds the raw (or normalized) measurements for one ~30s
// audio clip as returned by the analysis API. Fields other than loudness
// and tempo are conceptually in [0,1].
type SegmentFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Tempo            float64 `json:"tempo"`
	OriginalTempo    float64 `json:"originalTempo,omitempty"`
}

// SongFeatures is the merged, song-level feature vector.
type SongFeatures struct {
	Acousticness     float64 `json:"acousticness"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
	Liveness         float64 `json:"liveness"`
	Loudness         float64 `json:"loudness"`
	Tempo            float64 `json:"tempo"`
}

// Vector returns the features as an ordered numeric sequence. The order is
// the persistence contract for accepted_songs and must not change.
func (f SongFeatures) Vector() []float64 {
	return []float64{
		f.Acousticness,
		f.Danceability,
		f.Energy,
		f.Valence,
		f.Instrumentalness,
		f.Speechiness,
		f.Liveness,
		f.Loudness,
		f.Tempo,
	}
}
