package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgumentValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "neither caption nor file",
			args:    []string{"--url", "http://example.invalid"},
			wantErr: ErrEitherCaptionOrFile,
		},
		{
			name:    "both caption and file",
			args:    []string{"--caption", "a cat", "--file", "analysis.json"},
			wantErr: ErrCannotSpecifyBoth,
		},
		{
			name:    "caption only",
			args:    []string{"--caption", "a cat"},
			wantErr: nil,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			flags, err := parseFlags(testCase.args)
			require.NoError(t, err)

			err = validateFlags(flags)
			if testCase.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestParseFlags_TrimsURL(t *testing.T) {
	t.Parallel()

	flags, err := parseFlags([]string{"--url", "http://localhost:9090/", "--caption", "x"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", flags.url)
}

func TestBuildPayload_Caption(t *testing.T) {
	t.Parallel()

	payload, err := buildPayload(appFlags{caption: "A cat sitting on a chair"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"description":{"captions":[{"text":"A cat sitting on a chair"}]}}`, string(payload))
}

func TestBuildPayload_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "analysis.json")
	content := []byte(`{"description":{"captions":[{"text":"dog"}]},"tags":["dog"]}`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	payload, err := buildPayload(appFlags{file: path})
	require.NoError(t, err)
	assert.Equal(t, content, payload)
}

func TestRun_SubmitsCaption(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/VisionToSpeech", r.URL.Path)
		assert.Equal(t, "s3cret", r.Header.Get("x-functions-key"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		var analysis visionAnalysis
		assert.NoError(t, json.Unmarshal(body, &analysis))
		assert.Equal(t, "a cat", analysis.Description.Captions[0].Text)

		w.Header().Set("X-Blob-Name", "speech.wav")
		_, _ = w.Write([]byte("Speech file uploaded successfully."))
	}))
	defer server.Close()

	var out bytes.Buffer

	err := run([]string{"--url", server.URL, "--caption", "a cat", "--key", "s3cret"}, &out)
	require.NoError(t, err)

	assert.Equal(t, "Speech file uploaded successfully.\nBlob: speech.wav\n", out.String())
}

func TestRun_RejectedRequest(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Description not found."))
	}))
	defer server.Close()

	var out bytes.Buffer

	err := run([]string{"--url", server.URL, "--caption", "a cat"}, &out)
	require.ErrorIs(t, err, ErrRequestRejected)
	assert.Contains(t, err.Error(), "Description not found.")
	assert.Empty(t, out.String())
}

func TestRun_Health(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	var out bytes.Buffer

	err := run([]string{"--url", server.URL, "--health"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Vision-speech service is healthy\n", out.String())
}
