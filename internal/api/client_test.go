package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gryt-terminal/internal/api"
)

func TestSendMessage(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"response": "Hello back"})
	}))
	defer server.Close()

	client := api.New(api.WithBaseURL(server.URL), api.WithToken("tok-123"))

	reply, err := client.SendMessage(context.Background(), "sess-1", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello back", reply)

	assert.Equal(t, "/api/chat/send", gotPath)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "Hello", gotBody["message"])
	assert.Equal(t, "sess-1", gotBody["sessionId"])
}

func TestSendMessageEmptyResponseField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := api.New(api.WithBaseURL(server.URL))

	reply, err := client.SendMessage(context.Background(), "sess-1", "Hello")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestSendMessageServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"Failed to process chat message"}`))
	}))
	defer server.Close()

	client := api.New(api.WithBaseURL(server.URL))

	_, err := client.SendMessage(context.Background(), "sess-1", "Hello")
	require.Error(t, err)

	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "Failed to process chat message", apiErr.Message)
}

func TestValidateAccessKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/validate-access-key", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["accessKey"] != "valid-key-0123456789" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid access key"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": "session-token"})
	}))
	defer server.Close()

	client := api.New(api.WithBaseURL(server.URL))

	token, err := client.ValidateAccessKey(context.Background(), "valid-key-0123456789")
	require.NoError(t, err)
	assert.Equal(t, "session-token", token)

	_, err = client.ValidateAccessKey(context.Background(), "wrong-key-0123456789")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid access key", apiErr.Message)
}

func TestSubmitAPIKey(t *testing.T) {
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/keys/submit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"API key received"}`))
	}))
	defer server.Close()

	client := api.New(api.WithBaseURL(server.URL))

	err := client.SubmitAPIKey(context.Background(), "sk-test-key", "personal key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", gotBody["apiKey"])
	assert.Equal(t, "personal key", gotBody["description"])
}

func TestErrorWithoutMessageBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := api.New(api.WithBaseURL(server.URL))

	_, err := client.SendMessage(context.Background(), "sess-1", "Hello")
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "502")
}

func TestRequestTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"never seen"}`))
	}))
	defer server.Close()

	client := api.New(api.WithBaseURL(server.URL))

	_, err := client.SendMessage(ctx, "sess-1", "Hello")
	assert.Error(t, err)
}
