package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TerryZYH/PokerRangeCalculator/types"
)

// staticCredential hands out a fixed token and counts requests.
type staticCredential struct {
	token     string
	expiresOn time.Time
	calls     int
}

func (c *staticCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.calls++
	return azcore.AccessToken{Token: c.token, ExpiresOn: c.expiresOn}, nil
}

func TestAzureChat(t *testing.T) {
	var gotPath, gotVersion, gotKey string
	var gotReq completionsRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		_ = json.NewEncoder(w).Encode(completionsResponse{
			Choices: []completionsChoice{{
				Message: completionsMessage{Role: "assistant", Content: "Tight is right."},
			}},
			Usage: completionsUsage{PromptTokens: 10, CompletionTokens: 3},
		})
	}))
	defer srv.Close()

	p := NewAzureProvider(srv.URL, "azure-key", "gpt-35-turbo", "2024-02-15-preview", Defaults{
		Temperature: 0.7,
		MaxTokens:   1000,
	})
	defer func() { _ = p.Close() }()

	resp, err := p.Chat(context.Background(), ChatRequest{
		System:   "system prompt",
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Tight is right.", resp.Content)
	assert.Equal(t, "/openai/deployments/gpt-35-turbo/chat/completions", gotPath)
	assert.Equal(t, "2024-02-15-preview", gotVersion)
	assert.Equal(t, "azure-key", gotKey)

	// Azure addresses the deployment in the URL, never in the body.
	assert.Empty(t, gotReq.Model)
	assert.Equal(t, "Azure OpenAI", p.ID())
	assert.Equal(t, "gpt-35-turbo", p.Model())
}

func TestAzureEndpointTrailingSlash(t *testing.T) {
	p := NewAzureProvider("https://example.openai.azure.com/", "k", "dep", "v1", Defaults{})
	assert.Equal(t,
		"https://example.openai.azure.com/openai/deployments/dep/chat/completions?api-version=v1",
		p.completionsURL())
}

func TestAzureChatWithTokenCredential(t *testing.T) {
	var gotAuth, gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("api-key")

		_ = json.NewEncoder(w).Encode(completionsResponse{
			Choices: []completionsChoice{{
				Message: completionsMessage{Role: "assistant", Content: "ok"},
			}},
		})
	}))
	defer srv.Close()

	cred := &staticCredential{
		token:     "entra-token",
		expiresOn: time.Now().Add(time.Hour),
	}
	p := NewAzureProviderWithTokenCredential(srv.URL, "gpt-35-turbo", "2024-02-15-preview", cred, Defaults{})
	defer func() { _ = p.Close() }()

	_, err := p.Chat(context.Background(), ChatRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer entra-token", gotAuth)
	assert.Empty(t, gotKey)

	// A second call within the refresh buffer reuses the cached token.
	_, err = p.Chat(context.Background(), ChatRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: "again"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cred.calls)
}

func TestAzureTokenRefreshNearExpiry(t *testing.T) {
	cred := &staticCredential{
		token: "short-lived",
		// Inside the refresh buffer, so every request fetches anew.
		expiresOn: time.Now().Add(time.Minute),
	}
	p := NewAzureProviderWithTokenCredential("https://example.openai.azure.com", "dep", "v1", cred, Defaults{})

	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodPost, p.completionsURL(), nil)
		require.NoError(t, err)
		require.NoError(t, p.authenticate(context.Background(), req))
		assert.Equal(t, "Bearer short-lived", req.Header.Get("Authorization"))
	}
	assert.Equal(t, 2, cred.calls)
}

func TestAzureAuthenticateWithoutCredential(t *testing.T) {
	p := NewAzureProvider("https://example.openai.azure.com", "", "dep", "v1", Defaults{})

	req, err := http.NewRequest(http.MethodPost, p.completionsURL(), nil)
	require.NoError(t, err)

	err = p.authenticate(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no api key or credential")
}
