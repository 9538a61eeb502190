package client

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ItsAltus/Worshipify/internal/config"
	"github.com/ItsAltus/Worshipify/internal/model"
)

// Clip layout: a 60s preview split into two 30s segments.
var segmentStarts = []int{0, 30}

const segmentSeconds = 30

// AudioFetcher downloads a 60-second preview of a track with yt-dlp and
// splits it into two 30-second mp3 clips with ffmpeg. Everything lands in
// the caller-provided directory, which the worker removes after the job.
type AudioFetcher struct {
	ytdlpPath  string
	ffmpegPath string
}

// NewAudioFetcher creates an audio acquisition client backed by the
// yt-dlp and ffmpeg binaries.
func NewAudioFetcher(cfg *config.AudioConfig) *AudioFetcher {
	return &AudioFetcher{
		ytdlpPath:  cfg.YtdlpPath,
		ffmpegPath: cfg.FfmpegPath,
	}
}

// FetchSegments resolves the track's audio locator, downloads the first
// minute and returns the paths of the two trimmed clips.
func (f *AudioFetcher) FetchSegments(ctx context.Context, track *model.Track, dir string) ([]string, error) {
	base := filepath.Join(dir, uuid.New().String())
	raw60 := base + "_60s.m4a"

	cmd := exec.CommandContext(
		ctx,
		f.ytdlpPath,
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "m4a",
		"--output", raw60,
		"--download-sections", "*00:00:00-00:01:00",
		"--no-part",
		"--no-playlist",
		"--quiet",
		track.AudioLocator,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp failed: %v (%s)", err, out)
	}

	paths := make([]string, 0, len(segmentStarts))
	for _, start := range segmentStarts {
		clip := fmt.Sprintf("%s_from%ds.mp3", base, start)
		if err := f.trim(ctx, raw60, start, clip); err != nil {
			return nil, err
		}
		paths = append(paths, clip)
	}
	return paths, nil
}

func (f *AudioFetcher) trim(ctx context.Context, src string, start int, dst string) error {
	cmd := exec.CommandContext(
		ctx,
		f.ffmpegPath,
		"-y", "-loglevel", "quiet",
		"-ss", fmt.Sprintf("%d", start),
		"-t", fmt.Sprintf("%d", segmentSeconds),
		"-i", src,
		"-acodec", "libmp3lame",
		"-b:a", "192k",
		dst,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}
	return nil
}
