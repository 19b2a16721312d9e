package fakes

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeAzureClient is an in-memory implementation of store.AzureKeyVaultAPI.
type FakeAzureClient struct {
	mu sync.Mutex

	// Secrets maps vault secret names to their state.
	Secrets map[string]*AzureSecretData
	// Errors maps secret names (or "list") to errors to return.
	Errors map[string]error
}

// AzureSecretData holds one fake Key Vault secret.
type AzureSecretData struct {
	Name     string
	Value    string
	Version  int
	Tags     map[string]*string
	Updated  time.Time
	VaultURL string
}

// NewFakeAzureClient creates an empty fake client.
func NewFakeAzureClient() *FakeAzureClient {
	return &FakeAzureClient{
		Secrets: make(map[string]*AzureSecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecret seeds a secret with tags.
func (f *FakeAzureClient) AddSecret(name, value string, tags map[string]*string) {
	f.Secrets[name] = &AzureSecretData{
		Name:     name,
		Value:    value,
		Version:  1,
		Tags:     tags,
		Updated:  time.Now(),
		VaultURL: "https://test-vault.vault.azure.net",
	}
}

// AddError configures an error for a secret name, or "list" for the pager.
func (f *FakeAzureClient) AddError(name string, err error) {
	f.Errors[name] = err
}

func (d *AzureSecretData) id() *azsecrets.ID {
	id := azsecrets.ID(fmt.Sprintf("%s/secrets/%s/%d", d.VaultURL, d.Name, d.Version))
	return &id
}

// SetSecret creates the secret or adds a version.
func (f *FakeAzureClient) SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[name]; exists {
		return azsecrets.SetSecretResponse{}, err
	}

	secret, exists := f.Secrets[name]
	if !exists {
		secret = &AzureSecretData{Name: name, VaultURL: "https://test-vault.vault.azure.net"}
		f.Secrets[name] = secret
	}
	if parameters.Value != nil {
		secret.Value = *parameters.Value
	}
	secret.Version++
	secret.Tags = parameters.Tags
	secret.Updated = time.Now()

	return azsecrets.SetSecretResponse{
		Secret: azsecrets.Secret{
			ID:    secret.id(),
			Value: to.Ptr(secret.Value),
			Tags:  secret.Tags,
		},
	}, nil
}

// GetSecret returns the current secret state.
func (f *FakeAzureClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[name]; exists {
		return azsecrets.GetSecretResponse{}, err
	}
	secret, exists := f.Secrets[name]
	if !exists {
		return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
	}
	updated := secret.Updated
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:    secret.id(),
			Value: to.Ptr(secret.Value),
			Tags:  secret.Tags,
			Attributes: &azsecrets.SecretAttributes{
				Enabled: to.Ptr(true),
				Updated: &updated,
			},
		},
	}, nil
}

// DeleteSecret removes the secret.
func (f *FakeAzureClient) DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[name]; exists {
		return azsecrets.DeleteSecretResponse{}, err
	}
	if _, exists := f.Secrets[name]; !exists {
		return azsecrets.DeleteSecretResponse{}, AzureNotFoundError(name)
	}
	delete(f.Secrets, name)
	return azsecrets.DeleteSecretResponse{}, nil
}

// NewListSecretPropertiesPager returns a single-page pager over all secrets,
// sorted by name.
func (f *FakeAzureClient) NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse] {
	return runtime.NewPager(runtime.PagingHandler[azsecrets.ListSecretPropertiesResponse]{
		More: func(page azsecrets.ListSecretPropertiesResponse) bool {
			return false
		},
		Fetcher: func(ctx context.Context, page *azsecrets.ListSecretPropertiesResponse) (azsecrets.ListSecretPropertiesResponse, error) {
			f.mu.Lock()
			defer f.mu.Unlock()

			if err, exists := f.Errors["list"]; exists {
				return azsecrets.ListSecretPropertiesResponse{}, err
			}

			var names []string
			for name := range f.Secrets {
				names = append(names, name)
			}
			sort.Strings(names)

			var props []*azsecrets.SecretProperties
			for _, name := range names {
				secret := f.Secrets[name]
				props = append(props, &azsecrets.SecretProperties{
					ID:   secret.id(),
					Tags: secret.Tags,
				})
			}
			return azsecrets.ListSecretPropertiesResponse{
				SecretPropertiesListResult: azsecrets.SecretPropertiesListResult{
					Value: props,
				},
			}, nil
		},
	})
}

// AzureNotFoundError builds a 404 response error.
func AzureNotFoundError(name string) error {
	return azureResponseError(http.StatusNotFound, "SecretNotFound", "/secrets/"+name)
}

// AzureForbiddenError builds a 403 response error.
func AzureForbiddenError() error {
	return azureResponseError(http.StatusForbidden, "Forbidden", "/secrets")
}

func azureResponseError(statusCode int, errorCode, path string) error {
	return &azcore.ResponseError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		RawResponse: &http.Response{
			StatusCode: statusCode,
			Body:       http.NoBody,
			Request: &http.Request{
				Method: http.MethodGet,
				URL:    &url.URL{Scheme: "https", Host: "test-vault.vault.azure.net", Path: path},
			},
		},
	}
}
