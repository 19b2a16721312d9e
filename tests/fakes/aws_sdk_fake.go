package fakes

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// FakeSecretsManagerClient is an in-memory implementation of
// store.SecretsManagerAPI.
type FakeSecretsManagerClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their current state.
	Secrets map[string]*SMSecretData
	// Errors maps secret names (or "list") to errors to return.
	Errors map[string]error
	// PageSize caps ListSecrets pages to exercise NextToken handling.
	PageSize int
}

// SMSecretData holds one fake Secrets Manager secret.
type SMSecretData struct {
	Name        string
	Binary      []byte
	VersionID   string
	Versions    int
	Tags        []smtypes.Tag
	LastChanged time.Time
}

// NewFakeSecretsManagerClient creates an empty fake client.
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SMSecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecret seeds a secret with a value.
func (f *FakeSecretsManagerClient) AddSecret(name, value string) {
	f.Secrets[name] = &SMSecretData{
		Name:        name,
		Binary:      []byte(value),
		VersionID:   "v1",
		Versions:    1,
		LastChanged: time.Now(),
	}
}

// AddError configures an error for a secret name, or "list" for ListSecrets.
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// CreateSecret stores a new secret or fails with ResourceExistsException.
func (f *FakeSecretsManagerClient) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	if _, exists := f.Secrets[name]; exists {
		return nil, &smtypes.ResourceExistsException{Message: aws.String("secret already exists: " + name)}
	}

	f.Secrets[name] = &SMSecretData{
		Name:        name,
		Binary:      params.SecretBinary,
		VersionID:   "v1",
		Versions:    1,
		Tags:        params.Tags,
		LastChanged: time.Now(),
	}
	return &secretsmanager.CreateSecretOutput{
		Name:      aws.String(name),
		VersionId: aws.String("v1"),
	}, nil
}

// PutSecretValue adds a version to an existing secret.
func (f *FakeSecretsManagerClient) PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	secret, exists := f.Secrets[name]
	if !exists {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("secret not found: " + name)}
	}

	secret.Binary = params.SecretBinary
	secret.Versions++
	secret.VersionID = fmt.Sprintf("v%d", secret.Versions)
	secret.LastChanged = time.Now()
	return &secretsmanager.PutSecretValueOutput{
		Name:      aws.String(name),
		VersionId: aws.String(secret.VersionID),
	}, nil
}

// GetSecretValue returns the current value.
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	secret, exists := f.Secrets[name]
	if !exists {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("secret not found: " + name)}
	}
	return &secretsmanager.GetSecretValueOutput{
		Name:         aws.String(name),
		SecretBinary: secret.Binary,
		VersionId:    aws.String(secret.VersionID),
	}, nil
}

// DescribeSecret returns metadata.
func (f *FakeSecretsManagerClient) DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	secret, exists := f.Secrets[name]
	if !exists {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("secret not found: " + name)}
	}
	lastChanged := secret.LastChanged
	return &secretsmanager.DescribeSecretOutput{
		Name:            aws.String(name),
		Tags:            secret.Tags,
		LastChangedDate: &lastChanged,
	}, nil
}

// ListSecrets pages through all secrets, honoring the name begins-with
// filter the way the real service does.
func (f *FakeSecretsManagerClient) ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors["list"]; exists {
		return nil, err
	}

	var names []string
	for name := range f.Secrets {
		if matchesNameFilter(name, params.Filters) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	start := 0
	if params.NextToken != nil {
		fmt.Sscanf(aws.ToString(params.NextToken), "%d", &start)
	}
	end := len(names)
	pageSize := f.PageSize
	if pageSize > 0 && start+pageSize < end {
		end = start + pageSize
	}

	out := &secretsmanager.ListSecretsOutput{}
	for _, name := range names[start:end] {
		out.SecretList = append(out.SecretList, smtypes.SecretListEntry{Name: aws.String(name)})
	}
	if end < len(names) {
		out.NextToken = aws.String(fmt.Sprintf("%d", end))
	}
	return out, nil
}

func matchesNameFilter(name string, filters []smtypes.Filter) bool {
	for _, filter := range filters {
		if filter.Key != smtypes.FilterNameStringTypeName {
			continue
		}
		matched := false
		for _, prefix := range filter.Values {
			if strings.HasPrefix(name, prefix) {
				matched = true
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// DeleteSecret removes the secret.
func (f *FakeSecretsManagerClient) DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	if _, exists := f.Secrets[name]; !exists {
		return nil, &smtypes.ResourceNotFoundException{Message: aws.String("secret not found: " + name)}
	}
	delete(f.Secrets, name)
	return &secretsmanager.DeleteSecretOutput{Name: aws.String(name)}, nil
}

// FakeSSMClient is an in-memory implementation of store.SSMAPI.
type FakeSSMClient struct {
	mu sync.Mutex

	// Parameters maps absolute parameter paths to their state.
	Parameters map[string]*SSMParameterData
	// Errors maps parameter paths (or "describe") to errors to return.
	Errors map[string]error
}

// SSMParameterData holds one fake parameter.
type SSMParameterData struct {
	Name         string
	Value        string
	Version      int64
	LastModified time.Time
}

// NewFakeSSMClient creates an empty fake client.
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]*SSMParameterData),
		Errors:     make(map[string]error),
	}
}

// AddParameter seeds a parameter.
func (f *FakeSSMClient) AddParameter(name, value string) {
	f.Parameters[name] = &SSMParameterData{
		Name:         name,
		Value:        value,
		Version:      1,
		LastModified: time.Now(),
	}
}

// AddError configures an error for a parameter path.
func (f *FakeSSMClient) AddError(name string, err error) {
	f.Errors[name] = err
}

// PutParameter writes or overwrites a parameter.
func (f *FakeSSMClient) PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}

	param, exists := f.Parameters[name]
	if !exists {
		param = &SSMParameterData{Name: name}
		f.Parameters[name] = param
	}
	param.Value = aws.ToString(params.Value)
	param.Version++
	param.LastModified = time.Now()
	return &ssm.PutParameterOutput{Version: param.Version}, nil
}

// GetParameter returns a parameter, supporting name:version selectors.
func (f *FakeSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	selector := ""
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		selector = name[idx+1:]
		name = name[:idx]
	}

	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	param, exists := f.Parameters[name]
	if !exists {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter not found: " + name)}
	}
	if selector != "" && selector != fmt.Sprintf("%d", param.Version) {
		return nil, &ssmtypes.ParameterVersionNotFound{Message: aws.String("version not found: " + selector)}
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:    aws.String(param.Name),
			Value:   aws.String(param.Value),
			Version: param.Version,
		},
	}, nil
}

// GetParametersByPath returns every parameter under the path.
func (f *FakeSSMClient) GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors["list"]; exists {
		return nil, err
	}

	path := strings.TrimSuffix(aws.ToString(params.Path), "/")
	var names []string
	for name := range f.Parameters {
		if path == "" || name == path || strings.HasPrefix(name, path+"/") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := &ssm.GetParametersByPathOutput{}
	for _, name := range names {
		param := f.Parameters[name]
		out.Parameters = append(out.Parameters, ssmtypes.Parameter{
			Name:    aws.String(param.Name),
			Value:   aws.String(param.Value),
			Version: param.Version,
		})
	}
	return out, nil
}

// DescribeParameters supports the Name Equals filter used by Describe.
func (f *FakeSSMClient) DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors["describe"]; exists {
		return nil, err
	}

	out := &ssm.DescribeParametersOutput{}
	for name, param := range f.Parameters {
		if !matchesParameterFilter(name, params.ParameterFilters) {
			continue
		}
		lastModified := param.LastModified
		out.Parameters = append(out.Parameters, ssmtypes.ParameterMetadata{
			Name:             aws.String(param.Name),
			Version:          param.Version,
			LastModifiedDate: &lastModified,
		})
	}
	return out, nil
}

func matchesParameterFilter(name string, filters []ssmtypes.ParameterStringFilter) bool {
	for _, filter := range filters {
		if aws.ToString(filter.Key) != "Name" {
			continue
		}
		matched := false
		for _, v := range filter.Values {
			if name == v {
				matched = true
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// DeleteParameter removes a parameter.
func (f *FakeSSMClient) DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	if err, exists := f.Errors[name]; exists {
		return nil, err
	}
	if _, exists := f.Parameters[name]; !exists {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String("parameter not found: " + name)}
	}
	delete(f.Parameters, name)
	return &ssm.DeleteParameterOutput{}, nil
}
