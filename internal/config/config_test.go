// Package config_test tests the configuration loading for the vision-speech-service.
package config_test

import (
	"testing"

	"github.com/book-expert/vision-speech-service/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() config.Config {
	cfg := config.Config{
		Speech: config.SpeechConfig{
			SubscriptionKey: "key",
			Region:          "eastus",
		},
		NATS: config.NATSConfig{
			URL: "nats://127.0.0.1:4222",
		},
	}
	cfg.ApplyDefaults()

	return cfg
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[server]
address = ":9090"
function_key = "secret"

[speech]
subscription_key = "abc"
region = "westeurope"
voice = "en-GB-SoniaNeural"
timeout_seconds = 15

[storage]
backend = "azure"
connection_string = "UseDevelopmentStorage=true"
container = "captions"
blob_name = "caption.wav"
unique_blob_names = true

[nats]
url = "nats://127.0.0.1:4222"
worker_enabled = true
vision_analysis_subject = "vision.done"

[paths]
base_logs_dir = "/var/log/vision"
scratch_dir = "/scratch"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "secret", cfg.Server.FunctionKey)
	assert.Equal(t, "abc", cfg.Speech.SubscriptionKey)
	assert.Equal(t, "westeurope", cfg.Speech.Region)
	assert.Equal(t, "en-GB-SoniaNeural", cfg.Speech.Voice)
	assert.Equal(t, 15, cfg.Speech.TimeoutSeconds)
	assert.Equal(t, config.BackendAzure, cfg.Storage.Backend)
	assert.Equal(t, "UseDevelopmentStorage=true", cfg.Storage.ConnectionString)
	assert.Equal(t, "captions", cfg.Storage.Container)
	assert.Equal(t, "caption.wav", cfg.Storage.BlobName)
	assert.True(t, cfg.Storage.UniqueBlobNames)
	assert.True(t, cfg.NATS.WorkerEnabled)
	assert.Equal(t, "vision.done", cfg.NATS.VisionAnalysisSubject)
	assert.Equal(t, "/var/log/vision", cfg.Paths.BaseLogsDir)
	assert.Equal(t, "/scratch", cfg.Paths.ScratchDir)

	require.NoError(t, cfg.Validate())
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg config.Config
	cfg.ApplyDefaults()

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "en-US-AvaNeural", cfg.Speech.Voice)
	assert.Equal(t, "riff-24khz-16bit-mono-pcm", cfg.Speech.OutputFormat)
	assert.Equal(t, config.BackendNATS, cfg.Storage.Backend)
	assert.Equal(t, "speech-container", cfg.Storage.Container)
	assert.Equal(t, "speech.wav", cfg.Storage.BlobName)
	assert.False(t, cfg.Storage.UniqueBlobNames)
	assert.NotEmpty(t, cfg.Paths.ScratchDir)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr error
	}{
		{
			name:    "valid",
			mutate:  func(_ *config.Config) {},
			wantErr: nil,
		},
		{
			name:    "missing speech key",
			mutate:  func(cfg *config.Config) { cfg.Speech.SubscriptionKey = "" },
			wantErr: config.ErrSpeechKeyMissing,
		},
		{
			name:    "missing region",
			mutate:  func(cfg *config.Config) { cfg.Speech.Region = "" },
			wantErr: config.ErrSpeechRegionMissing,
		},
		{
			name: "endpoint instead of region",
			mutate: func(cfg *config.Config) {
				cfg.Speech.Region = ""
				cfg.Speech.Endpoint = "http://localhost:5000/cognitiveservices/v1"
			},
			wantErr: nil,
		},
		{
			name:    "unknown backend",
			mutate:  func(cfg *config.Config) { cfg.Storage.Backend = "s3" },
			wantErr: config.ErrUnknownBackend,
		},
		{
			name:    "azure without connection string",
			mutate:  func(cfg *config.Config) { cfg.Storage.Backend = config.BackendAzure },
			wantErr: config.ErrConnectionStringMissing,
		},
		{
			name:    "nats without url",
			mutate:  func(cfg *config.Config) { cfg.NATS.URL = "" },
			wantErr: config.ErrNATSURLMissing,
		},
		{
			name: "worker without url",
			mutate: func(cfg *config.Config) {
				cfg.Storage.Backend = config.BackendAzure
				cfg.Storage.ConnectionString = "UseDevelopmentStorage=true"
				cfg.NATS.URL = ""
				cfg.NATS.WorkerEnabled = true
			},
			wantErr: config.ErrNATSURLMissing,
		},
		{
			name:    "blob name with slash",
			mutate:  func(cfg *config.Config) { cfg.Storage.BlobName = "a/b.wav" },
			wantErr: config.ErrBlobNameInvalid,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			testCase.mutate(&cfg)

			err := cfg.Validate()
			if testCase.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvSpeechKey, "env-key")
	t.Setenv(config.EnvSpeechRegion, "northeurope")
	t.Setenv(config.EnvStorageConnection, "env-conn")
	t.Setenv(config.EnvFunctionKey, "env-function-key")
	t.Setenv(config.EnvNATSURL, "")

	cfg := validConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "env-key", cfg.Speech.SubscriptionKey)
	assert.Equal(t, "northeurope", cfg.Speech.Region)
	assert.Equal(t, "env-conn", cfg.Storage.ConnectionString)
	assert.Equal(t, "env-function-key", cfg.Server.FunctionKey)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL, "empty env values must not clear config")
}
