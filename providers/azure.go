package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// cognitiveServicesScope is the OAuth scope for Azure OpenAI.
const cognitiveServicesScope = "https://cognitiveservices.azure.com/.default"

// tokenRefreshBuffer is the time before token expiration to trigger a refresh.
const tokenRefreshBuffer = 5 * time.Minute

// AzureProvider implements the Provider interface for Azure OpenAI.
// Authentication is either a static api-key or, when no key is configured,
// an Entra ID token from the default Azure credential chain (managed
// identity, Azure CLI, environment).
type AzureProvider struct {
	endpoint   string
	deployment string
	apiVersion string
	apiKey     string
	defaults   Defaults
	client     *http.Client

	cred        azcore.TokenCredential
	tokenMu     sync.Mutex
	cachedToken *azcore.AccessToken
}

// NewAzureProvider creates a new Azure OpenAI provider using api-key
// authentication.
func NewAzureProvider(endpoint, apiKey, deployment, apiVersion string, defaults Defaults) *AzureProvider {
	return &AzureProvider{
		endpoint:   strings.TrimRight(endpoint, "/"),
		deployment: deployment,
		apiVersion: apiVersion,
		apiKey:     apiKey,
		defaults:   defaults,
		client:     &http.Client{Timeout: providerTimeout},
	}
}

// NewAzureProviderWithCredential creates an Azure OpenAI provider that
// authenticates with Entra ID via the default credential chain (managed
// identity, workload identity, Azure CLI, environment).
func NewAzureProviderWithCredential(endpoint, deployment, apiVersion string, defaults Defaults) (*AzureProvider, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return NewAzureProviderWithTokenCredential(endpoint, deployment, apiVersion, cred, defaults), nil
}

// NewAzureProviderWithTokenCredential creates an Azure OpenAI provider that
// authenticates with the given token credential.
func NewAzureProviderWithTokenCredential(endpoint, deployment, apiVersion string, cred azcore.TokenCredential, defaults Defaults) *AzureProvider {
	p := NewAzureProvider(endpoint, "", deployment, apiVersion, defaults)
	p.cred = cred
	return p
}

// ID returns the provider name.
func (p *AzureProvider) ID() string { return "Azure OpenAI" }

// Model returns the deployment name this provider targets.
func (p *AzureProvider) Model() string { return p.deployment }

// Close closes the HTTP client and cleans up idle connections.
func (p *AzureProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Chat sends a blocking chat-completion request to the configured deployment.
func (p *AzureProvider) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	applyDefaults(&req, p.defaults)

	// The deployment is addressed in the URL, so the wire request omits
	// the model field.
	wireReq := completionsRequest{
		Messages:    buildWireMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	httpReq, err := p.newRequest(ctx, wireReq)
	if err != nil {
		return ChatResponse{}, err
	}

	return doCompletions(p.ID(), p.deployment, p.client, httpReq, wireReq)
}

// ChatStream streams a chat response from the configured deployment.
func (p *AzureProvider) ChatStream(ctx context.Context, req ChatRequest) (<-chan StreamChunk, error) {
	applyDefaults(&req, p.defaults)

	wireReq := completionsRequest{
		Messages:      buildWireMessages(req),
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	}

	httpReq, err := p.newRequest(ctx, wireReq)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	return openCompletionsStream(ctx, p.ID(), p.client, httpReq)
}

// completionsURL builds the deployment-scoped chat-completions endpoint.
func (p *AzureProvider) completionsURL() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, url.PathEscape(p.deployment), url.QueryEscape(p.apiVersion))
}

// newRequest builds an authenticated POST to the deployment endpoint.
func (p *AzureProvider) newRequest(ctx context.Context, wireReq completionsRequest) (*http.Request, error) {
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.completionsURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if err := p.authenticate(ctx, httpReq); err != nil {
		return nil, err
	}
	return httpReq, nil
}

// authenticate attaches either the api-key header or an Entra ID bearer token.
func (p *AzureProvider) authenticate(ctx context.Context, req *http.Request) error {
	if p.apiKey != "" {
		req.Header.Set("api-key", p.apiKey)
		return nil
	}

	if p.cred == nil {
		return fmt.Errorf("no api key or credential configured")
	}

	token, err := p.getToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get Azure token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// getToken returns a cached Entra ID token, refreshing it shortly before
// expiry.
func (p *AzureProvider) getToken(ctx context.Context) (string, error) {
	p.tokenMu.Lock()
	defer p.tokenMu.Unlock()

	if p.cachedToken != nil && time.Until(p.cachedToken.ExpiresOn) > tokenRefreshBuffer {
		return p.cachedToken.Token, nil
	}

	token, err := p.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{cognitiveServicesScope},
	})
	if err != nil {
		return "", err
	}

	p.cachedToken = &token
	return token.Token, nil
}
