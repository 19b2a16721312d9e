package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
)

// GCPAPI is the subset of the Secret Manager client the store uses. Narrowed
// to an interface so tests can inject a fake.
type GCPAPI interface {
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error)
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error)
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator
	DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error
}

// SecretIterator iterates ListSecrets results. google.golang.org/api/iterator
// signals exhaustion with iterator.Done.
type SecretIterator interface {
	Next() (*secretmanagerpb.Secret, error)
}

// GCPStore implements Store on Google Cloud Secret Manager.
type GCPStore struct {
	name      string
	client    GCPAPI
	projectID string
}

// GCPOption is a functional option for configuring the GCP store.
type GCPOption func(*GCPStore)

// WithGCPClient injects a custom client (for testing).
func WithGCPClient(client GCPAPI) GCPOption {
	return func(s *GCPStore) {
		s.client = client
	}
}

// NewGCPStore creates a Secret Manager store. Recognized config keys:
// project_id (required, falls back to GOOGLE_CLOUD_PROJECT and friends),
// service_account_key_path, impersonate_service_account.
func NewGCPStore(name string, configMap map[string]interface{}, opts ...GCPOption) (*GCPStore, error) {
	projectID, _ := configMap["project_id"].(string)
	if projectID == "" {
		projectID = gcpProjectFromEnv()
	}
	if projectID == "" {
		return nil, maoserrors.ConfigError{
			Field:      "project_id",
			Message:    "project_id is required for gcp.secretmanager stores",
			Suggestion: "Set project_id in the store config or the GOOGLE_CLOUD_PROJECT environment variable",
		}
	}

	s := &GCPStore{name: name, projectID: projectID}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		client, err := newGCPClient(configMap)
		if err != nil {
			return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
		}
		s.client = &gcpClientAdapter{client}
	}
	return s, nil
}

func newGCPClient(configMap map[string]interface{}) (*secretmanager.Client, error) {
	ctx := context.Background()
	var clientOptions []option.ClientOption

	if keyPath, _ := configMap["service_account_key_path"].(string); keyPath != "" {
		if strings.HasPrefix(keyPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			keyPath = filepath.Join(home, keyPath[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(keyPath))
	}

	if principal, _ := configMap["impersonate_service_account"].(string); principal != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: principal,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = append(clientOptions, option.WithTokenSource(ts))
	}

	return secretmanager.NewClient(ctx, clientOptions...)
}

func gcpProjectFromEnv() string {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCLOUD_PROJECT", "GCP_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

// gcpClientAdapter narrows *secretmanager.Client to GCPAPI.
type gcpClientAdapter struct {
	c *secretmanager.Client
}

func (a *gcpClientAdapter) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	return a.c.CreateSecret(ctx, req)
}

func (a *gcpClientAdapter) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	return a.c.AddSecretVersion(ctx, req)
}

func (a *gcpClientAdapter) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return a.c.AccessSecretVersion(ctx, req)
}

func (a *gcpClientAdapter) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error) {
	return a.c.GetSecret(ctx, req)
}

func (a *gcpClientAdapter) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) SecretIterator {
	return a.c.ListSecrets(ctx, req)
}

func (a *gcpClientAdapter) DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error {
	return a.c.DeleteSecret(ctx, req)
}

// Name returns the configured store name.
func (s *GCPStore) Name() string {
	return s.name
}

// Type returns gcp.secretmanager.
func (s *GCPStore) Type() string {
	return "gcp.secretmanager"
}

func (s *GCPStore) parent() string {
	return "projects/" + s.projectID
}

func (s *GCPStore) secretResource(id string) string {
	return fmt.Sprintf("projects/%s/secrets/%s", s.projectID, id)
}

func (s *GCPStore) versionResource(id, version string) string {
	if version == "" {
		version = "latest"
	}
	return fmt.Sprintf("%s/versions/%s", s.secretResource(id), version)
}

// Get retrieves a secret version, latest by default.
func (s *GCPStore) Get(ctx context.Context, id, version string) (Value, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.versionResource(id, version),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Value{}, NotFoundError{Store: s.name, ID: id}
		}
		return Value{}, s.wrap("get", err)
	}
	if resp.Payload == nil {
		return Value{}, fmt.Errorf("secret %s has no payload", id)
	}
	return Value{Data: resp.Payload.Data, Version: versionFromResource(resp.Name)}, nil
}

// Describe fetches secret metadata without touching the payload.
func (s *GCPStore) Describe(ctx context.Context, id string) (Info, error) {
	secret, err := s.client.GetSecret(ctx, &secretmanagerpb.GetSecretRequest{
		Name: s.secretResource(id),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Info{Exists: false}, nil
		}
		return Info{}, s.wrap("describe", err)
	}

	info := Info{Exists: true, ID: id, Labels: secret.Labels}
	if secret.CreateTime != nil {
		info.UpdatedAt = secret.CreateTime.AsTime()
	}
	return info, nil
}

// List returns all secret IDs under the given prefix. Secret Manager has no
// server-side prefix filter for IDs, so filtering happens here.
func (s *GCPStore) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent: s.parent(),
	})

	var ids []string
	for {
		secret, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, s.wrap("list", err)
		}
		// Resource names look like projects/P/secrets/ID; the ID itself may
		// contain slashes, so split on the literal marker.
		parts := strings.SplitN(secret.Name, "/secrets/", 2)
		if len(parts) != 2 {
			continue
		}
		if prefix == "" || strings.HasPrefix(parts[1], prefix) {
			ids = append(ids, parts[1])
		}
	}
	return ids, nil
}

// Upsert creates the secret on first write, then always adds a new version.
// Previous versions remain available for audit and rollback.
func (s *GCPStore) Upsert(ctx context.Context, id string, value []byte, labels map[string]string) (string, error) {
	_, err := s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   s.parent(),
		SecretId: id,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
			Labels: labels,
		},
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return "", s.wrap("create", err)
	}

	resp, err := s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretResource(id),
		Payload: &secretmanagerpb.SecretPayload{Data: value},
	})
	if err != nil {
		return "", s.wrap("add version", err)
	}
	return versionFromResource(resp.Name), nil
}

// Delete removes the secret and every version it holds.
func (s *GCPStore) Delete(ctx context.Context, id string) error {
	err := s.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{
		Name: s.secretResource(id),
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return NotFoundError{Store: s.name, ID: id}
		}
		return s.wrap("delete", err)
	}
	return nil
}

// Validate lists a single secret to confirm connectivity and permissions.
func (s *GCPStore) Validate(ctx context.Context) error {
	it := s.client.ListSecrets(ctx, &secretmanagerpb.ListSecretsRequest{
		Parent:   s.parent(),
		PageSize: 1,
	})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return s.wrap("validate", err)
	}
	return nil
}

func (s *GCPStore) wrap(operation string, err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated:
		return AuthError{Store: s.name, Message: err.Error()}
	}
	return maoserrors.StoreError("gcp.secretmanager", operation, err)
}

// versionFromResource extracts the trailing version number from a resource
// name like projects/P/secrets/ID/versions/3.
func versionFromResource(name string) string {
	if idx := strings.LastIndex(name, "/versions/"); idx >= 0 {
		return name[idx+len("/versions/"):]
	}
	return ""
}
