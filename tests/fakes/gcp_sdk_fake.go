package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/Activ8-AI/maosec/internal/store"
)

// FakeGCPClient is an in-memory implementation of store.GCPAPI.
type FakeGCPClient struct {
	// Secrets maps full resource names (projects/P/secrets/ID) to metadata.
	Secrets map[string]*GCPSecretData
	// Versions maps version resource names to payloads.
	Versions map[string]*GCPVersionData
	// Errors maps resource names to errors to return.
	Errors map[string]error

	CreateSecretFunc        func(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error)
	AddSecretVersionFunc    func(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error)
	AccessSecretVersionFunc func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
	ListSecretsFunc         func(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) store.SecretIterator
}

// GCPSecretData holds metadata for a fake secret.
type GCPSecretData struct {
	Name       string
	CreateTime *timestamppb.Timestamp
	Labels     map[string]string
}

// GCPVersionData holds one stored version payload.
type GCPVersionData struct {
	Name string
	Data []byte
}

// NewFakeGCPClient creates an empty fake client.
func NewFakeGCPClient() *FakeGCPClient {
	return &FakeGCPClient{
		Secrets:  make(map[string]*GCPSecretData),
		Versions: make(map[string]*GCPVersionData),
		Errors:   make(map[string]error),
	}
}

// AddSecretString seeds a secret with a single version.
func (f *FakeGCPClient) AddSecretString(projectID, secretID, value string) {
	secretName := fmt.Sprintf("projects/%s/secrets/%s", projectID, secretID)
	if _, exists := f.Secrets[secretName]; !exists {
		f.Secrets[secretName] = &GCPSecretData{
			Name:       secretName,
			CreateTime: timestamppb.New(time.Now()),
			Labels:     make(map[string]string),
		}
	}
	f.addVersion(secretName, []byte(value))
}

// AddError configures an error for a resource name.
func (f *FakeGCPClient) AddError(resourceName string, err error) {
	f.Errors[resourceName] = err
}

func (f *FakeGCPClient) addVersion(secretName string, data []byte) *GCPVersionData {
	num := 0
	for name := range f.Versions {
		if strings.HasPrefix(name, secretName+"/versions/") && !strings.HasSuffix(name, "/latest") {
			num++
		}
	}
	num++
	version := &GCPVersionData{
		Name: fmt.Sprintf("%s/versions/%d", secretName, num),
		Data: data,
	}
	f.Versions[version.Name] = version
	f.Versions[secretName+"/versions/latest"] = version
	return version
}

// CreateSecret creates a secret or fails with AlreadyExists.
func (f *FakeGCPClient) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error) {
	if f.CreateSecretFunc != nil {
		return f.CreateSecretFunc(ctx, req)
	}
	name := req.Parent + "/secrets/" + req.SecretId
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	if _, exists := f.Secrets[name]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "secret %s already exists", name)
	}

	labels := map[string]string{}
	if req.Secret != nil && req.Secret.Labels != nil {
		labels = req.Secret.Labels
	}
	f.Secrets[name] = &GCPSecretData{
		Name:       name,
		CreateTime: timestamppb.New(time.Now()),
		Labels:     labels,
	}
	return &secretmanagerpb.Secret{Name: name, Labels: labels}, nil
}

// AddSecretVersion appends a version to an existing secret.
func (f *FakeGCPClient) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error) {
	if f.AddSecretVersionFunc != nil {
		return f.AddSecretVersionFunc(ctx, req)
	}
	if err, exists := f.Errors[req.Parent]; exists {
		return nil, err
	}
	if _, exists := f.Secrets[req.Parent]; !exists {
		return nil, status.Errorf(codes.NotFound, "secret %s not found", req.Parent)
	}
	version := f.addVersion(req.Parent, req.Payload.Data)
	return &secretmanagerpb.SecretVersion{
		Name:  version.Name,
		State: secretmanagerpb.SecretVersion_ENABLED,
	}, nil
}

// AccessSecretVersion returns a stored payload.
func (f *FakeGCPClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	if f.AccessSecretVersionFunc != nil {
		return f.AccessSecretVersionFunc(ctx, req)
	}
	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}
	version, exists := f.Versions[req.Name]
	if !exists {
		return nil, status.Errorf(codes.NotFound, "secret version %s not found", req.Name)
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    version.Name,
		Payload: &secretmanagerpb.SecretPayload{Data: version.Data},
	}, nil
}

// GetSecret returns secret metadata.
func (f *FakeGCPClient) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest) (*secretmanagerpb.Secret, error) {
	if err, exists := f.Errors[req.Name]; exists {
		return nil, err
	}
	secret, exists := f.Secrets[req.Name]
	if !exists {
		return nil, status.Errorf(codes.NotFound, "secret %s not found", req.Name)
	}
	return &secretmanagerpb.Secret{
		Name:       secret.Name,
		CreateTime: secret.CreateTime,
		Labels:     secret.Labels,
	}, nil
}

// ListSecrets iterates every secret under the parent project, sorted by name
// for deterministic tests.
func (f *FakeGCPClient) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest) store.SecretIterator {
	if f.ListSecretsFunc != nil {
		return f.ListSecretsFunc(ctx, req)
	}
	if err, exists := f.Errors[req.Parent]; exists {
		return &FakeSecretIterator{err: err}
	}

	prefix := req.Parent + "/secrets/"
	var secrets []*secretmanagerpb.Secret
	for name, data := range f.Secrets {
		if strings.HasPrefix(name, prefix) {
			secrets = append(secrets, &secretmanagerpb.Secret{
				Name:       data.Name,
				CreateTime: data.CreateTime,
				Labels:     data.Labels,
			})
		}
	}
	sort.Slice(secrets, func(i, j int) bool { return secrets[i].Name < secrets[j].Name })
	return &FakeSecretIterator{secrets: secrets}
}

// DeleteSecret removes a secret and its versions.
func (f *FakeGCPClient) DeleteSecret(ctx context.Context, req *secretmanagerpb.DeleteSecretRequest) error {
	if err, exists := f.Errors[req.Name]; exists {
		return err
	}
	if _, exists := f.Secrets[req.Name]; !exists {
		return status.Errorf(codes.NotFound, "secret %s not found", req.Name)
	}
	delete(f.Secrets, req.Name)
	for name := range f.Versions {
		if strings.HasPrefix(name, req.Name+"/versions/") {
			delete(f.Versions, name)
		}
	}
	return nil
}

// FakeSecretIterator implements store.SecretIterator over a fixed slice.
type FakeSecretIterator struct {
	secrets []*secretmanagerpb.Secret
	index   int
	err     error
}

// Next returns the next secret or iterator.Done.
func (it *FakeSecretIterator) Next() (*secretmanagerpb.Secret, error) {
	if it.err != nil {
		return nil, it.err
	}
	if it.index >= len(it.secrets) {
		return nil, iterator.Done
	}
	secret := it.secrets[it.index]
	it.index++
	return secret, nil
}

// GCPPermissionDeniedError builds a PermissionDenied status error.
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

// GCPUnauthenticatedError builds an Unauthenticated status error.
func GCPUnauthenticatedError(message string) error {
	return status.Error(codes.Unauthenticated, message)
}
