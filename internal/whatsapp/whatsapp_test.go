package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_PostsJSONWithBearer(t *testing.T) {
	var got sendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Token: "secret", Sender: "souq"}, srv.Client())
	require.NoError(t, c.Send(context.Background(), "+9647700000001", "hello"))

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "9647700000001", got.To)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "souq", got.Sender)
}

func TestSend_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, srv.Client())
	err := c.Send(context.Background(), "+9647700000001", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSend_EmptyRecipient(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	assert.Error(t, c.Send(context.Background(), " + ", "hello"))
}

func TestFormatText(t *testing.T) {
	assert.Equal(t, "*Approved*\nYour request is live", FormatText("Approved", "Your request is live", ""))
	assert.Equal(t, "*A*\nB\nhttps://x", FormatText("A", "B", "https://x"))
}
