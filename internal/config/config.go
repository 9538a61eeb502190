package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Spotify    SpotifyConfig
	Lastfm     LastfmConfig
	ReccoBeats ReccoBeatsConfig
	Audio      AudioConfig
	Worker     WorkerConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	AuthURL      string
}

type LastfmConfig struct {
	APIKey   string
	BaseURL  string
	TagLimit int
}

type ReccoBeatsConfig struct {
	BaseURL string
	Timeout int // seconds
}

type AudioConfig struct {
	YtdlpPath  string
	FfmpegPath string
	TempDir    string // empty means the OS temp dir
}

type WorkerConfig struct {
	Count        int
	PollInterval int // seconds between idle polls
}

type RateLimitConfig struct {
	SearchPerMin int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("DATABASE_URL")
	readSecret("REDIS_PASSWORD")
	readSecret("SPOTIFY_CLIENT_SECRET")
	readSecret("LASTFM_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	_ = viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("spotify.client_id", "SPOTIFY_CLIENT_ID")
	_ = viper.BindEnv("spotify.client_secret", "SPOTIFY_CLIENT_SECRET")
	_ = viper.BindEnv("spotify.base_url", "SPOTIFY_BASE_URL")
	_ = viper.BindEnv("spotify.auth_url", "SPOTIFY_AUTH_URL")
	_ = viper.BindEnv("lastfm.api_key", "LASTFM_API_KEY")
	_ = viper.BindEnv("lastfm.base_url", "LASTFM_BASE_URL")
	_ = viper.BindEnv("lastfm.tag_limit", "LASTFM_TAG_LIMIT")
	_ = viper.BindEnv("reccobeats.base_url", "RECCOBEATS_BASE_URL")
	_ = viper.BindEnv("reccobeats.timeout", "RECCOBEATS_TIMEOUT")
	_ = viper.BindEnv("audio.ytdlp_path", "YTDLP_PATH")
	_ = viper.BindEnv("audio.ffmpeg_path", "FFMPEG_PATH")
	_ = viper.BindEnv("audio.temp_dir", "AUDIO_TEMP_DIR")
	_ = viper.BindEnv("worker.count", "WORKER_COUNT")
	_ = viper.BindEnv("worker.poll_interval", "WORKER_POLL_INTERVAL")
	_ = viper.BindEnv("ratelimit.search_per_min", "RATELIMIT_SEARCH_PER_MIN")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("database.url", "worshipify.sqlite3")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Spotify defaults
	viper.SetDefault("spotify.base_url", "https://api.spotify.com/v1")
	viper.SetDefault("spotify.auth_url", "https://accounts.spotify.com/api/token")

	// Last.fm defaults
	viper.SetDefault("lastfm.base_url", "http://ws.audioscrobbler.com/2.0/")
	viper.SetDefault("lastfm.tag_limit", 5)

	// ReccoBeats defaults
	viper.SetDefault("reccobeats.base_url", "https://api.reccobeats.com")
	viper.SetDefault("reccobeats.timeout", 120)

	// Audio tooling defaults
	viper.SetDefault("audio.ytdlp_path", "yt-dlp")
	viper.SetDefault("audio.ffmpeg_path", "ffmpeg")
	viper.SetDefault("audio.temp_dir", "")

	// Worker defaults
	viper.SetDefault("worker.count", 1)
	viper.SetDefault("worker.poll_interval", 3)

	viper.SetDefault("ratelimit.search_per_min", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Database: DatabaseConfig{
			URL:          viper.GetString("database.url"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Spotify: SpotifyConfig{
			ClientID:     viper.GetString("spotify.client_id"),
			ClientSecret: viper.GetString("spotify.client_secret"),
			BaseURL:      viper.GetString("spotify.base_url"),
			AuthURL:      viper.GetString("spotify.auth_url"),
		},
		Lastfm: LastfmConfig{
			APIKey:   viper.GetString("lastfm.api_key"),
			BaseURL:  viper.GetString("lastfm.base_url"),
			TagLimit: viper.GetInt("lastfm.tag_limit"),
		},
		ReccoBeats: ReccoBeatsConfig{
			BaseURL: viper.GetString("reccobeats.base_url"),
			Timeout: viper.GetInt("reccobeats.timeout"),
		},
		Audio: AudioConfig{
			YtdlpPath:  viper.GetString("audio.ytdlp_path"),
			FfmpegPath: viper.GetString("audio.ffmpeg_path"),
			TempDir:    viper.GetString("audio.temp_dir"),
		},
		Worker: WorkerConfig{
			Count:        viper.GetInt("worker.count"),
			PollInterval: viper.GetInt("worker.poll_interval"),
		},
		RateLimit: RateLimitConfig{
			SearchPerMin: viper.GetInt("ratelimit.search_per_min"),
		},
	}

	return cfg, nil
}
