package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	AuthSecret  string `yaml:"auth_secret"`   // HMAC secret of the external token issuer
	MaxUploadMB int64  `yaml:"max_upload_mb"` // multipart upload cap
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables redis; in-process fallbacks are used
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"` // per-job lock expiry safety net
}

type StorageConfig struct {
	Root   string `yaml:"root"`   // one directory per job lives under here
	FFmpeg string `yaml:"ffmpeg"` // ffmpeg binary, defaults to PATH lookup
}

type ProvidersConfig struct {
	AssemblyAIKey string `yaml:"assemblyai_key"`
	GeminiKey     string `yaml:"gemini_key"`
	GeminiURL     string `yaml:"gemini_url"`
	GeminiModel   string `yaml:"gemini_model"`
	GoogleTTSKey  string `yaml:"google_tts_key"`
	OpenAIKey     string `yaml:"openai_key"` // optional fallback transcriber and synthesizer
	OpenAIURL     string `yaml:"openai_url"`
}

type PipelineConfig struct {
	Workers              int           `yaml:"workers"`                 // background job runs
	STTConcurrency       int           `yaml:"stt_concurrency"`         // simultaneous transcription calls
	TranslateConcurrency int           `yaml:"translate_concurrency"`   // simultaneous translation calls
	TTSConcurrency       int           `yaml:"tts_concurrency"`         // simultaneous synthesis calls
	TranscribeTimeout    time.Duration `yaml:"transcribe_timeout"`      // per transcription stage run
	SynthesizeTimeout    time.Duration `yaml:"synthesize_timeout"`      // per synthesis stage run
	TTSRequestsPerMinute int           `yaml:"tts_requests_per_minute"` // provider rate limit budget
	SpeakingRate         float64       `yaml:"speaking_rate"`           // default synthesis rate
	ChunkTokens          int           `yaml:"chunk_tokens"`            // translation chunk budget
	TestMode             bool          `yaml:"test_mode"`               // enables the fault-injection endpoint
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Storage.Root == "" {
		return nil, errors.New("storage.root is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 200
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 30 * time.Minute
	}
	if cfg.Storage.FFmpeg == "" {
		cfg.Storage.FFmpeg = "ffmpeg"
	}
	if cfg.Providers.GeminiModel == "" {
		cfg.Providers.GeminiModel = "gemini-2.0-flash"
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.STTConcurrency <= 0 {
		cfg.Pipeline.STTConcurrency = 2
	}
	if cfg.Pipeline.TranslateConcurrency <= 0 {
		cfg.Pipeline.TranslateConcurrency = 4
	}
	if cfg.Pipeline.TTSConcurrency <= 0 {
		cfg.Pipeline.TTSConcurrency = 2
	}
	if cfg.Pipeline.TranscribeTimeout <= 0 {
		cfg.Pipeline.TranscribeTimeout = 30 * time.Minute
	}
	if cfg.Pipeline.SynthesizeTimeout <= 0 {
		cfg.Pipeline.SynthesizeTimeout = 30 * time.Minute
	}
	if cfg.Pipeline.TTSRequestsPerMinute <= 0 {
		cfg.Pipeline.TTSRequestsPerMinute = 300
	}
	if cfg.Pipeline.SpeakingRate <= 0 {
		cfg.Pipeline.SpeakingRate = 1.2
	}
	if cfg.Pipeline.ChunkTokens <= 0 {
		cfg.Pipeline.ChunkTokens = 1200
	}
}
