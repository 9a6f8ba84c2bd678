package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/trendsignal/pkg/retrier"
)

func fastRetrier() *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxRetries(2),
		retrier.WithInitialInterval(time.Millisecond),
		retrier.WithRetryIf(isRetryableLLMError),
	)
}

func TestOpenAICompatibleClient_Chat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"{\"action\":\"none\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(srv.URL, "secret", "", WithLLMRetrier(fastRetrier()))
	reply, err := c.Chat(context.Background(), "system text", "user text")
	require.NoError(t, err)

	assert.Equal(t, `{"action":"none"}`, reply)
	assert.Equal(t, DefaultLLMModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user text", got.Messages[1].Content)
}

func TestOpenAICompatibleClient_UserOnly(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompatibleClient(srv.URL, "secret", "o1", WithLLMRetrier(fastRetrier()))
	_, err := c.Chat(context.Background(), "", "only user")
	require.NoError(t, err)

	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "o1", c.Model())
}

func TestOpenAICompatibleClient_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expectedCalls int32
	}{
		{name: "bad request is not retried", status: http.StatusBadRequest, body: `{"error":{"message":"bad"}}`, expectedCalls: 1},
		{name: "server error is retried", status: http.StatusBadGateway, body: `oops`, expectedCalls: 3},
		{name: "rate limit is retried", status: http.StatusTooManyRequests, body: `slow down`, expectedCalls: 3},
		{name: "api error object", status: http.StatusOK, body: `{"error":{"message":"quota","type":"insufficient_quota"}}`, expectedCalls: 3},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, expectedCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewOpenAICompatibleClient(srv.URL, "secret", "", WithLLMRetrier(fastRetrier()))
			_, err := c.Chat(context.Background(), "", "hi")
			assert.Error(t, err)
			assert.Equal(t, tt.expectedCalls, calls.Load())
		})
	}
}

func TestOpenAICompatibleClient_EmptyKey(t *testing.T) {
	c := NewOpenAICompatibleClient("http://127.0.0.1:0", "", "")
	_, err := c.Chat(context.Background(), "", "hi")
	assert.Error(t, err)
}
