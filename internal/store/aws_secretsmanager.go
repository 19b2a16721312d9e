package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
)

// SecretsManagerAPI is the subset of the AWS Secrets Manager client the
// store uses, narrowed for fake injection in tests.
type SecretsManagerAPI interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// AWSSecretsManagerStore implements Store on AWS Secrets Manager. Secrets
// Manager accepts slashes in names, so canonical IDs pass through unchanged.
type AWSSecretsManagerStore struct {
	name   string
	client SecretsManagerAPI
	region string
}

// AWSSMOption is a functional option for configuring the store.
type AWSSMOption func(*AWSSecretsManagerStore)

// WithSecretsManagerClient injects a custom client (for testing).
func WithSecretsManagerClient(client SecretsManagerAPI) AWSSMOption {
	return func(s *AWSSecretsManagerStore) {
		s.client = client
	}
}

// NewAWSSecretsManagerStore creates a Secrets Manager store. Recognized
// config keys: region, endpoint (LocalStack), access_key_id,
// secret_access_key.
func NewAWSSecretsManagerStore(name string, configMap map[string]interface{}, opts ...AWSSMOption) (*AWSSecretsManagerStore, error) {
	region := "us-east-1"
	if r, _ := configMap["region"].(string); r != "" {
		region = r
	}

	s := &AWSSecretsManagerStore{name: name, region: region}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cfg, err := loadAWSConfig(configMap, region)
		if err != nil {
			return nil, err
		}
		var clientOpts []func(*secretsmanager.Options)
		if endpoint, _ := configMap["endpoint"].(string); endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = aws.String(endpoint)
			})
		}
		s.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}
	return s, nil
}

// loadAWSConfig builds the AWS SDK config shared by the AWS-backed stores.
func loadAWSConfig(configMap map[string]interface{}, region string) (aws.Config, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	configOpts = append(configOpts, awsconfig.WithRegion(region))

	accessKeyID, _ := configMap["access_key_id"].(string)
	secretAccessKey, _ := configMap["secret_access_key"].(string)
	if accessKeyID != "" && secretAccessKey != "" {
		configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

// Name returns the configured store name.
func (s *AWSSecretsManagerStore) Name() string {
	return s.name
}

// Type returns aws.secretsmanager.
func (s *AWSSecretsManagerStore) Type() string {
	return "aws.secretsmanager"
}

// Get retrieves a secret value, latest stage by default.
func (s *AWSSecretsManagerStore) Get(ctx context.Context, id, version string) (Value, error) {
	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(id)}
	if version != "" {
		input.VersionId = aws.String(version)
	}

	out, err := s.client.GetSecretValue(ctx, input)
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return Value{}, NotFoundError{Store: s.name, ID: id}
		}
		return Value{}, s.wrap("get", err)
	}

	value := Value{Version: aws.ToString(out.VersionId)}
	if out.SecretBinary != nil {
		value.Data = out.SecretBinary
	} else {
		value.Data = []byte(aws.ToString(out.SecretString))
	}
	return value, nil
}

// Describe fetches secret metadata.
func (s *AWSSecretsManagerStore) Describe(ctx context.Context, id string) (Info, error) {
	out, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return Info{Exists: false}, nil
		}
		return Info{}, s.wrap("describe", err)
	}

	info := Info{Exists: true, ID: id, Labels: make(map[string]string, len(out.Tags))}
	for _, tag := range out.Tags {
		info.Labels[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	if out.LastChangedDate != nil {
		info.UpdatedAt = *out.LastChangedDate
	}
	return info, nil
}

// List returns all secret names under the prefix, following pagination.
func (s *AWSSecretsManagerStore) List(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	var nextToken *string

	for {
		input := &secretsmanager.ListSecretsInput{NextToken: nextToken}
		if prefix != "" {
			input.Filters = []smtypes.Filter{{
				Key:    smtypes.FilterNameStringTypeName,
				Values: []string{prefix},
			}}
		}

		out, err := s.client.ListSecrets(ctx, input)
		if err != nil {
			return nil, s.wrap("list", err)
		}
		for _, entry := range out.SecretList {
			name := aws.ToString(entry.Name)
			// The name filter is a begins-with match server-side, but keep
			// the client-side check so fakes and edge cases behave alike.
			if prefix == "" || strings.HasPrefix(name, prefix) {
				ids = append(ids, name)
			}
		}

		if out.NextToken == nil {
			return ids, nil
		}
		nextToken = out.NextToken
	}
}

// Upsert creates the secret on first write, then stores a new version.
func (s *AWSSecretsManagerStore) Upsert(ctx context.Context, id string, value []byte, labels map[string]string) (string, error) {
	var tags []smtypes.Tag
	for k, v := range labels {
		tags = append(tags, smtypes.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	created, err := s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(id),
		SecretBinary: value,
		Tags:         tags,
	})
	if err == nil {
		return aws.ToString(created.VersionId), nil
	}

	var exists *smtypes.ResourceExistsException
	if !errors.As(err, &exists) {
		return "", s.wrap("create", err)
	}

	out, err := s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(id),
		SecretBinary: value,
	})
	if err != nil {
		return "", s.wrap("put value", err)
	}
	return aws.ToString(out.VersionId), nil
}

// Delete removes the secret immediately, without a recovery window. The
// hierarchical target already holds the value when migration prunes a legacy
// name, so the recovery window would only keep stale copies around.
func (s *AWSSecretsManagerStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(id),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return NotFoundError{Store: s.name, ID: id}
		}
		return s.wrap("delete", err)
	}
	return nil
}

// Validate lists a single secret to confirm connectivity and permissions.
func (s *AWSSecretsManagerStore) Validate(ctx context.Context) error {
	_, err := s.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return s.wrap("validate", err)
	}
	return nil
}

func (s *AWSSecretsManagerStore) wrap(operation string, err error) error {
	errStr := err.Error()
	if strings.Contains(errStr, "AccessDenied") || strings.Contains(errStr, "UnrecognizedClient") {
		return AuthError{Store: s.name, Message: errStr}
	}
	return maoserrors.StoreError("aws.secretsmanager", operation, err)
}
