// Package config provides the configuration structure for the vision-speech-service.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendNATS  = "nats"
	BackendAzure = "azure"
)

// Environment variables that override secrets from the TOML file.
const (
	EnvSpeechKey         = "AZURE_SPEECH_KEY"
	EnvSpeechRegion      = "AZURE_SPEECH_REGION"
	EnvStorageConnection = "AZURE_STORAGE_CONNECTION_STRING"
	EnvFunctionKey       = "VISION_SPEECH_FUNCTION_KEY"
	EnvNATSURL           = "NATS_URL"
)

// Defaults.
const (
	defaultAddress             = ":8080"
	defaultReadTimeoutSeconds  = 30
	defaultWriteTimeoutSeconds = 120
	defaultVoice               = "en-US-AvaNeural"
	defaultLanguage            = "en-US"
	defaultOutputFormat        = "riff-24khz-16bit-mono-pcm"
	defaultSpeechTimeout       = 60
	defaultContainer           = "speech-container"
	defaultBlobName            = "speech.wav"
	defaultVisionSubject       = "vision.analysis.completed"
)

var (
	// ErrSpeechKeyMissing indicates that no speech subscription key was configured.
	ErrSpeechKeyMissing = errors.New("speech subscription key is required")
	// ErrSpeechRegionMissing indicates that neither a region nor an endpoint was configured.
	ErrSpeechRegionMissing = errors.New("speech region or endpoint is required")
	// ErrUnknownBackend indicates an unsupported storage backend.
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrConnectionStringMissing indicates the azure backend has no connection string.
	ErrConnectionStringMissing = errors.New("storage connection string is required for the azure backend")
	// ErrNATSURLMissing indicates that NATS is needed but has no URL.
	ErrNATSURLMissing = errors.New("nats url is required")
	// ErrBlobNameInvalid indicates a blob name that is empty or contains a path separator.
	ErrBlobNameInvalid = errors.New("blob name must be a non-empty name without '/'")
)

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	Address             string `toml:"address"`
	FunctionKey         string `toml:"function_key"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
}

// SpeechConfig holds the speech service credentials and voice settings.
type SpeechConfig struct {
	SubscriptionKey string `toml:"subscription_key"`
	Region          string `toml:"region"`
	Endpoint        string `toml:"endpoint"`
	Voice           string `toml:"voice"`
	Language        string `toml:"language"`
	OutputFormat    string `toml:"output_format"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// StorageConfig holds the blob storage configuration.
type StorageConfig struct {
	Backend          string `toml:"backend"`
	ConnectionString string `toml:"connection_string"`
	Container        string `toml:"container"`
	BlobName         string `toml:"blob_name"`
	UniqueBlobNames  bool   `toml:"unique_blob_names"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                   string `toml:"url"`
	WorkerEnabled         bool   `toml:"worker_enabled"`
	VisionAnalysisSubject string `toml:"vision_analysis_subject"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	ScratchDir  string `toml:"scratch_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Speech  SpeechConfig  `toml:"speech"`
	Storage StorageConfig `toml:"storage"`
	NATS    NATSConfig    `toml:"nats"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads the configuration for the vision-speech-service.
func Load(log *logger.Logger) (*Config, error) {
	envErr := godotenv.Load()
	if envErr != nil {
		log.Info("No .env file loaded: %v", envErr)
	}

	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyEnvOverrides()
	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyEnvOverrides replaces secrets and endpoints with values from the environment when set.
func (c *Config) ApplyEnvOverrides() {
	overrides := map[string]*string{
		EnvSpeechKey:         &c.Speech.SubscriptionKey,
		EnvSpeechRegion:      &c.Speech.Region,
		EnvStorageConnection: &c.Storage.ConnectionString,
		EnvFunctionKey:       &c.Server.FunctionKey,
		EnvNATSURL:           &c.NATS.URL,
	}

	for name, target := range overrides {
		value, ok := os.LookupEnv(name)
		if ok && value != "" {
			*target = value
		}
	}
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Server.Address, defaultAddress)
	setDefaultInt(&c.Server.ReadTimeoutSeconds, defaultReadTimeoutSeconds)
	setDefaultInt(&c.Server.WriteTimeoutSeconds, defaultWriteTimeoutSeconds)

	setDefault(&c.Speech.Voice, defaultVoice)
	setDefault(&c.Speech.Language, defaultLanguage)
	setDefault(&c.Speech.OutputFormat, defaultOutputFormat)
	setDefaultInt(&c.Speech.TimeoutSeconds, defaultSpeechTimeout)

	setDefault(&c.Storage.Backend, BackendNATS)
	setDefault(&c.Storage.Container, defaultContainer)
	setDefault(&c.Storage.BlobName, defaultBlobName)

	setDefault(&c.NATS.VisionAnalysisSubject, defaultVisionSubject)

	setDefault(&c.Paths.BaseLogsDir, os.TempDir())
	setDefault(&c.Paths.ScratchDir, os.TempDir())
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Speech.SubscriptionKey == "" {
		return ErrSpeechKeyMissing
	}

	if c.Speech.Region == "" && c.Speech.Endpoint == "" {
		return ErrSpeechRegionMissing
	}

	if c.Storage.BlobName == "" || strings.Contains(c.Storage.BlobName, "/") {
		return fmt.Errorf("%w: %q", ErrBlobNameInvalid, c.Storage.BlobName)
	}

	switch c.Storage.Backend {
	case BackendNATS:
		if c.NATS.URL == "" {
			return ErrNATSURLMissing
		}
	case BackendAzure:
		if c.Storage.ConnectionString == "" {
			return ErrConnectionStringMissing
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}

	if c.NATS.WorkerEnabled && c.NATS.URL == "" {
		return ErrNATSURLMissing
	}

	return nil
}

// UsesNATS reports whether a NATS connection is required.
func (c *Config) UsesNATS() bool {
	return c.Storage.Backend == BackendNATS || c.NATS.WorkerEnabled
}

func setDefault(target *string, value string) {
	if *target == "" {
		*target = value
	}
}

func setDefaultInt(target *int, value int) {
	if *target <= 0 {
		*target = value
	}
}
