package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-storybook-kit/pkg/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAIClient(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		MaxRetries: -1,
	})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestOpenAIClient_GenerateStoryText(t *testing.T) {
	var payload map[string]any
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		payload = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"TITLE: Hi\nPAGE 1: Hello."}}]}`))
	})

	got, err := client.GenerateStoryText(context.Background(), "write a story")
	require.NoError(t, err)
	assert.Equal(t, "TITLE: Hi\nPAGE 1: Hello.", got)

	assert.Equal(t, DefaultOpenAITextModel, payload["model"])
	assert.EqualValues(t, DefaultMaxTokens, payload["max_completion_tokens"])
	messages, ok := payload["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, prompts.StorySystemPrompt, messages[0].(map[string]any)["content"])
	assert.Equal(t, "write a story", messages[1].(map[string]any)["content"])
}

func TestOpenAIClient_GenerateStoryText_Empty(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[]}`))
	})

	_, err := client.GenerateStoryText(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIClient_GenerateIllustration(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "base64", body: `{"created":1,"data":[{"b64_json":"aW1n"}]}`, want: "data:image/png;base64,aW1n"},
		{name: "url", body: `{"created":1,"data":[{"url":"https://cdn.example/1.png"}]}`, want: "https://cdn.example/1.png"},
		{name: "empty", body: `{"created":1,"data":[{}]}`, wantErr: true},
		{name: "no data", body: `{"created":1,"data":[]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload map[string]any
			client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/images/generations", r.URL.Path)
				payload = decodeBody(t, r)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := client.GenerateIllustration(context.Background(), "a dragon")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, DefaultOpenAIImageModel, payload["model"])
			assert.Equal(t, "1024x1024", payload["size"])
			assert.Equal(t, "medium", payload["quality"])
			assert.Contains(t, payload["prompt"], imagePromptHeader)
			assert.Contains(t, payload["prompt"], "a dragon")
		})
	}
}

func TestOpenAIClient_RateLimit(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit","type":"rate_limit_error","param":"","code":"rate_limit"}}`))
	})

	_, err := client.GenerateIllustration(context.Background(), "p")
	require.Error(t, err)
	rle, ok := IsRateLimitError(err)
	require.True(t, ok, "expected RateLimitError, got %T: %v", err, err)
	assert.Equal(t, http.StatusTooManyRequests, rle.StatusCode)
	assert.Equal(t, 3*time.Second, rle.RetryAfter)
}

func TestOpenAIClient_ServerError(t *testing.T) {
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error","param":"","code":"bad"}}`))
	})

	_, err := client.GenerateStoryText(context.Background(), "p")
	require.Error(t, err)
	_, isRate := IsRateLimitError(err)
	assert.False(t, isRate)
	assert.Contains(t, err.Error(), "status 400")
}

func TestOpenAIClient_GenerateSpeech(t *testing.T) {
	var payload map[string]any
	client := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		payload = decodeBody(t, r)
		_, _ = w.Write([]byte("mp3-bytes"))
	})

	audio, err := client.GenerateSpeech(context.Background(), "Once upon a time.")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, DefaultOpenAISpeechModel, payload["model"])
	assert.Equal(t, DefaultOpenAIVoice, payload["voice"])
	assert.Equal(t, "mp3", payload["response_format"])
	assert.InDelta(t, DefaultSpeechSpeed, payload["speed"], 0.001)
	assert.Equal(t, ".mp3", client.SpeechFormat())
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 5*time.Second, parseRetryAfter("5"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
}

func TestFirstInlineImage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte("img")}},
			}},
		}},
	}
	got, err := firstInlineImage(resp)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,aW1n", got)

	_, err = firstInlineImage(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	_, err = firstInlineImage(nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, isTransient(genai.APIError{Code: http.StatusServiceUnavailable}))
	assert.True(t, isTransient(fmt.Errorf("wrapped: %w", genai.APIError{Code: http.StatusTooManyRequests})))
	assert.True(t, isTransient(&RateLimitError{Provider: "openai"}))
	assert.False(t, isTransient(genai.APIError{Code: http.StatusBadRequest}))
	assert.False(t, isTransient(context.Canceled))
	assert.False(t, isTransient(errors.New("boom")))
}

func TestWithRetry_NoWarningAfterCancel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, "test", 3, time.Millisecond, func() (string, error) {
		calls++
		cancel()
		return "", genai.APIError{Code: http.StatusServiceUnavailable}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.NotContains(t, buf.String(), "再試行")
}

func TestGeminiClient_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"TITLE: Hi\nPAGE 1: Hello."}]}}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	got, err := client.GenerateStoryText(context.Background(), "write a story")
	require.NoError(t, err)
	assert.Equal(t, "TITLE: Hi\nPAGE 1: Hello.", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGeminiClient_DoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad prompt","status":"INVALID_ARGUMENT"}}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.GenerateStoryText(context.Background(), "write a story")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
