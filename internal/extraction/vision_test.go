package extraction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTempImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("fake-image-bytes"), 0644))
	return path
}

func TestVisionExtractorExtractText(t *testing.T) {
	server, client := newFakeModelServer(t, "PARACETAMOL 500MG  10  PCT123  05/26  35.00  24.50")
	defer server.Close()

	extractor := NewVisionExtractor(client, "gpt-4o", zap.NewNop())
	text, err := extractor.ExtractText(context.Background(), writeTempImage(t, "page.jpg"))
	require.NoError(t, err)
	assert.Contains(t, text, "PARACETAMOL")
}

func TestVisionExtractorUnsupportedType(t *testing.T) {
	extractor := NewVisionExtractor(openai.NewClient("test-key"), "gpt-4o", zap.NewNop())

	_, err := extractor.ExtractText(context.Background(), writeTempImage(t, "bill.tiff"))
	require.Error(t, err)

	var extErr *Error
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, StageVision, extErr.Stage)
}

func TestVisionExtractorEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(openai.ChatCompletionResponse{}))
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	extractor := NewVisionExtractor(openai.NewClientWithConfig(cfg), "gpt-4o", zap.NewNop())

	text, err := extractor.ExtractText(context.Background(), writeTempImage(t, "page.png"))
	require.NoError(t, err, "an empty model response is not an error")
	assert.Equal(t, "", text)
}

func TestVisionExtractorTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	extractor := NewVisionExtractor(openai.NewClientWithConfig(cfg), "gpt-4o", zap.NewNop())

	_, err := extractor.ExtractText(context.Background(), writeTempImage(t, "page.webp"))
	require.Error(t, err)

	var extErr *Error
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, StageVision, extErr.Stage)
}
