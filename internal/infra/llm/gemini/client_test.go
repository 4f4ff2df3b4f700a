package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("  ", "")
	require.Error(t, err)

	client, err := NewClient("key", "")
	require.NoError(t, err)
	require.Equal(t, defaultBaseURL, client.baseURL)

	client, err = NewClient("key", "https://proxy.example.com/v1beta/")
	require.NoError(t, err)
	require.Equal(t, "https://proxy.example.com/v1beta", client.baseURL)
}

func TestGenerateContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req GenerateContentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Equal(t, "hello", req.Contents[0].Parts[0].Text)

		resp := GenerateContentResponse{
			Candidates: []Candidate{{
				Content: Content{Parts: []Part{{Text: "world"}}},
			}},
			UsageMetadata: &UsageMetadata{PromptTokenCount: 3, TotalTokenCount: 5},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client, err := NewClient("secret", server.URL)
	require.NoError(t, err)

	resp, err := client.GenerateContent(context.Background(), "gemini-test", GenerateContentRequest{
		Contents: []Content{{Parts: []Part{{Text: "hello"}}}},
	})
	require.NoError(t, err)
	require.Equal(t, "world", resp.FirstText())
	require.Equal(t, 3, resp.UsageMetadata.PromptTokenCount)
}

func TestGenerateContentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client, err := NewClient("secret", server.URL)
	require.NoError(t, err)

	_, err = client.GenerateContent(context.Background(), "gemini-test", GenerateContentRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=429")
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestFirstTextAndBlob(t *testing.T) {
	resp := GenerateContentResponse{
		Candidates: []Candidate{{
			Content: Content{Parts: []Part{
				{Text: "   "},
				{InlineData: &Blob{MIMEType: "audio/pcm", Data: "QUJD"}},
				{Text: "answer"},
			}},
		}},
	}
	require.Equal(t, "answer", resp.FirstText())
	require.Equal(t, "QUJD", resp.FirstBlob().Data)

	empty := GenerateContentResponse{}
	require.Empty(t, empty.FirstText())
	require.Nil(t, empty.FirstBlob())
}
