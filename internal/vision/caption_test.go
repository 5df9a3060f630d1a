package vision_test

import (
	"testing"

	"github.com/book-expert/vision-speech-service/internal/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCaption(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "single caption",
			input: `{"description":{"captions":[{"text":"A cat sitting on a chair"}]}}`,
			want:  "A cat sitting on a chair",
		},
		{
			name: "only first caption is used",
			input: `{"description":{"captions":[{"text":"first","confidence":0.9},` +
				`{"text":"second"},{"text":"third"}]},"tags":["cat"]}`,
			want: "first",
		},
		{
			name:    "empty captions",
			input:   `{"description":{"captions":[]}}`,
			wantErr: vision.ErrCaptionNotFound,
		},
		{
			name:    "empty text",
			input:   `{"description":{"captions":[{"text":""}]}}`,
			wantErr: vision.ErrCaptionNotFound,
		},
		{
			name:    "missing description",
			input:   `{"tags":["cat"]}`,
			wantErr: vision.ErrCaptionNotFound,
		},
		{
			name:    "missing text",
			input:   `{"description":{"captions":[{"confidence":0.5}]}}`,
			wantErr: vision.ErrCaptionNotFound,
		},
		{
			name:    "captions is not an array",
			input:   `{"description":{"captions":{"text":"nope"}}}`,
			wantErr: vision.ErrCaptionNotFound,
		},
		{
			name:    "text is not a string",
			input:   `{"description":{"captions":[{"text":42}]}}`,
			wantErr: vision.ErrCaptionNotFound,
		},
		{
			name:    "top level array",
			input:   `[1,2,3]`,
			wantErr: vision.ErrCaptionNotFound,
		},
		{
			name:    "null document",
			input:   `null`,
			wantErr: vision.ErrCaptionNotFound,
		},
		{
			name:    "malformed json",
			input:   `{"description":`,
			wantErr: vision.ErrInvalidPayload,
		},
		{
			name:    "empty body",
			input:   ``,
			wantErr: vision.ErrInvalidPayload,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			caption, err := vision.ExtractCaption([]byte(testCase.input))
			if testCase.wantErr != nil {
				require.ErrorIs(t, err, testCase.wantErr)
				assert.Empty(t, caption)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, testCase.want, caption)
		})
	}
}
