package store

import (
	"context"
	"errors"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
)

// pathTag is the Key Vault tag that carries the canonical hierarchy ID.
// Vault secret names only allow [0-9a-zA-Z-], so the slash-separated ID is
// flattened for the name and preserved losslessly in this tag.
const pathTag = "maos_path"

// AzureKeyVaultAPI is the subset of the azsecrets client the store uses.
type AzureKeyVaultAPI interface {
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	DeleteSecret(ctx context.Context, name string, options *azsecrets.DeleteSecretOptions) (azsecrets.DeleteSecretResponse, error)
	NewListSecretPropertiesPager(options *azsecrets.ListSecretPropertiesOptions) *runtime.Pager[azsecrets.ListSecretPropertiesResponse]
}

// AzureKeyVaultStore implements Store on Azure Key Vault.
type AzureKeyVaultStore struct {
	name     string
	client   AzureKeyVaultAPI
	vaultURL string
}

// AzureOption is a functional option for configuring the store.
type AzureOption func(*AzureKeyVaultStore)

// WithAzureClient injects a custom client (for testing).
func WithAzureClient(client AzureKeyVaultAPI) AzureOption {
	return func(s *AzureKeyVaultStore) {
		s.client = client
	}
}

// NewAzureKeyVaultStore creates a Key Vault store. Recognized config keys:
// vault_url (required), tenant_id, client_id, client_secret. Without client
// credentials the default credential chain (az login, managed identity,
// environment) is used.
func NewAzureKeyVaultStore(name string, configMap map[string]interface{}, opts ...AzureOption) (*AzureKeyVaultStore, error) {
	vaultURL, _ := configMap["vault_url"].(string)
	if vaultURL == "" {
		return nil, maoserrors.ConfigError{
			Field:      "vault_url",
			Message:    "vault_url is required for azure.keyvault stores",
			Suggestion: "Set vault_url to https://<vault-name>.vault.azure.net",
		}
	}

	s := &AzureKeyVaultStore{name: name, vaultURL: vaultURL}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cred, err := azureCredential(configMap)
		if err != nil {
			return nil, err
		}
		client, err := azsecrets.NewClient(vaultURL, cred, nil)
		if err != nil {
			return nil, maoserrors.StoreError("azure.keyvault", "client init", err)
		}
		s.client = client
	}
	return s, nil
}

func azureCredential(configMap map[string]interface{}) (azcore.TokenCredential, error) {
	tenantID, _ := configMap["tenant_id"].(string)
	clientID, _ := configMap["client_id"].(string)
	clientSecret, _ := configMap["client_secret"].(string)

	if tenantID != "" && clientID != "" && clientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
		if err != nil {
			return nil, maoserrors.StoreError("azure.keyvault", "credential init", err)
		}
		return cred, nil
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, maoserrors.StoreError("azure.keyvault", "credential init", err)
	}
	return cred, nil
}

// Name returns the configured store name.
func (s *AzureKeyVaultStore) Name() string {
	return s.name
}

// Type returns azure.keyvault.
func (s *AzureKeyVaultStore) Type() string {
	return "azure.keyvault"
}

// vaultName flattens a canonical ID into a Key Vault secret name.
func vaultName(id string) string {
	n := strings.ReplaceAll(id, "/", "-")
	return strings.ReplaceAll(n, "_", "-")
}

// Get retrieves a secret value, latest version by default.
func (s *AzureKeyVaultStore) Get(ctx context.Context, id, version string) (Value, error) {
	resp, err := s.client.GetSecret(ctx, vaultName(id), version, nil)
	if err != nil {
		return Value{}, s.wrap("get", id, err)
	}

	value := Value{}
	if resp.Value != nil {
		value.Data = []byte(*resp.Value)
	}
	if resp.ID != nil {
		value.Version = resp.ID.Version()
	}
	return value, nil
}

// Describe fetches the secret and reports its metadata. Key Vault has no
// value-free lookup for a single secret, so the payload is fetched and
// immediately discarded.
func (s *AzureKeyVaultStore) Describe(ctx context.Context, id string) (Info, error) {
	resp, err := s.client.GetSecret(ctx, vaultName(id), "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return Info{Exists: false}, nil
		}
		return Info{}, s.wrap("describe", id, err)
	}

	info := Info{Exists: true, ID: id, Labels: map[string]string{}}
	if resp.ID != nil {
		info.Version = resp.ID.Version()
	}
	if resp.Attributes != nil && resp.Attributes.Updated != nil {
		info.UpdatedAt = *resp.Attributes.Updated
	}
	for k, v := range resp.Tags {
		if v != nil {
			info.Labels[k] = *v
		}
	}
	return info, nil
}

// List pages through every secret and returns those whose path tag starts
// with the canonical prefix. Secrets without the tag are not managed by
// maosec and are skipped.
func (s *AzureKeyVaultStore) List(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	pager := s.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, s.wrap("list", prefix, err)
		}
		for _, props := range page.Value {
			if props == nil || props.Tags == nil {
				continue
			}
			tagged := props.Tags[pathTag]
			if tagged == nil {
				continue
			}
			if prefix == "" || strings.HasPrefix(*tagged, prefix) {
				ids = append(ids, *tagged)
			}
		}
	}
	return ids, nil
}

// Upsert writes a new secret version. SetSecret creates the secret when it
// is absent and appends a version otherwise, so no create/update split is
// needed. The canonical ID rides along in the path tag.
func (s *AzureKeyVaultStore) Upsert(ctx context.Context, id string, value []byte, labels map[string]string) (string, error) {
	tags := make(map[string]*string, len(labels)+1)
	canonical := id
	tags[pathTag] = &canonical
	for k, v := range labels {
		v := v
		tags[k] = &v
	}

	payload := string(value)
	resp, err := s.client.SetSecret(ctx, vaultName(id), azsecrets.SetSecretParameters{
		Value: &payload,
		Tags:  tags,
	}, nil)
	if err != nil {
		return "", s.wrap("set", id, err)
	}
	if resp.ID != nil {
		return resp.ID.Version(), nil
	}
	return "", nil
}

// Delete removes the secret.
func (s *AzureKeyVaultStore) Delete(ctx context.Context, id string) error {
	if _, err := s.client.DeleteSecret(ctx, vaultName(id), nil); err != nil {
		return s.wrap("delete", id, err)
	}
	return nil
}

// Validate pulls the first page of secret properties to confirm access.
func (s *AzureKeyVaultStore) Validate(ctx context.Context) error {
	pager := s.client.NewListSecretPropertiesPager(nil)
	if pager.More() {
		if _, err := pager.NextPage(ctx); err != nil {
			return s.wrap("validate", "", err)
		}
	}
	return nil
}

func (s *AzureKeyVaultStore) wrap(operation, id string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return NotFoundError{Store: s.name, ID: id}
		case 401, 403:
			return AuthError{Store: s.name, Message: err.Error()}
		}
	}
	return maoserrors.StoreError("azure.keyvault", operation, err)
}
