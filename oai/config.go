package oai

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL         = "https://api.openai.com/v1"
	defaultAzureAPIVersion = "2024-10-21"
)

// Config describes an API backend: how to resolve an operation path into a
// full URL and which headers authenticate the request. Callers hold this
// interface rather than a concrete configuration, so API-compatible
// backends (Azure deployments, local OpenAI-compatible servers) plug in
// without touching the client.
type Config interface {
	// BaseURL returns the API root, without a trailing slash.
	BaseURL() string
	// ResolveURL turns an operation path like "/chat/completions" into a
	// full request URL.
	ResolveURL(path string) string
	// Headers returns the headers every request must carry, including
	// authentication.
	Headers() (http.Header, error)
}

// APIConfig configures access to api.openai.com or any OpenAI-compatible
// endpoint. The zero value plus an APIKey is a working configuration.
type APIConfig struct {
	// APIKey is sent as a Bearer token. Leave empty for local endpoints
	// that don't authenticate.
	APIKey string
	// Org is sent as the OpenAI-Organization header when set.
	Org string
	// Project is sent as the OpenAI-Project header when set.
	Project string
	// Base overrides the default https://api.openai.com/v1.
	Base string
}

func (c APIConfig) BaseURL() string {
	if c.Base != "" {
		return strings.TrimSuffix(c.Base, "/")
	}
	return defaultBaseURL
}

func (c APIConfig) ResolveURL(path string) string {
	return c.BaseURL() + path
}

func (c APIConfig) Headers() (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		h.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}
	if c.Org != "" {
		h.Set("OpenAI-Organization", c.Org)
	}
	if c.Project != "" {
		h.Set("OpenAI-Project", c.Project)
	}
	return h, nil
}

// AzureConfig configures access to an Azure OpenAI resource. Exactly one of
// APIKey or TokenSource must be set: APIKey uses the api-key header,
// TokenSource fetches Entra ID tokens and sends them as Bearer tokens.
type AzureConfig struct {
	// Endpoint is the resource endpoint, e.g. https://my-resource.openai.azure.com.
	Endpoint string
	// Deployment is the model deployment name, addressed in the URL path.
	Deployment string
	// APIVersion overrides the default query parameter value.
	APIVersion string

	APIKey      string
	TokenSource oauth2.TokenSource
}

func (c AzureConfig) BaseURL() string {
	return strings.TrimSuffix(c.Endpoint, "/") + "/openai/deployments/" + c.Deployment
}

func (c AzureConfig) ResolveURL(path string) string {
	version := c.APIVersion
	if version == "" {
		version = defaultAzureAPIVersion
	}
	return c.BaseURL() + path + "?api-version=" + url.QueryEscape(version)
}

func (c AzureConfig) Headers() (http.Header, error) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	switch {
	case c.TokenSource != nil:
		token, err := c.TokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch Azure token: %w", err)
		}
		token.SetAuthHeader(&http.Request{Header: h})
	case c.APIKey != "":
		h.Set("api-key", c.APIKey)
	default:
		return nil, fmt.Errorf("azure config: either APIKey or TokenSource must be set")
	}
	return h, nil
}
