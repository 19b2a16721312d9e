package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	maoserrors "github.com/Activ8-AI/maosec/internal/errors"
)

// SSMAPI is the subset of the SSM client the store uses.
type SSMAPI interface {
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
	DescribeParameters(ctx context.Context, params *ssm.DescribeParametersInput, optFns ...func(*ssm.Options)) (*ssm.DescribeParametersOutput, error)
	DeleteParameter(ctx context.Context, params *ssm.DeleteParameterInput, optFns ...func(*ssm.Options)) (*ssm.DeleteParameterOutput, error)
}

// AWSSSMStore implements Store on SSM Parameter Store. Parameter Store has
// native path hierarchies, so a canonical ID maps onto /prefix/env/tenant/
// system/name and prefix listing uses GetParametersByPath directly.
type AWSSSMStore struct {
	name   string
	client SSMAPI
	region string
	kmsKey string
}

// AWSSSMOption is a functional option for configuring the store.
type AWSSSMOption func(*AWSSSMStore)

// WithSSMClient injects a custom client (for testing).
func WithSSMClient(client SSMAPI) AWSSSMOption {
	return func(s *AWSSSMStore) {
		s.client = client
	}
}

// NewAWSSSMStore creates a Parameter Store store. Recognized config keys:
// region, endpoint, kms_key_id, access_key_id, secret_access_key.
func NewAWSSSMStore(name string, configMap map[string]interface{}, opts ...AWSSSMOption) (*AWSSSMStore, error) {
	region := "us-east-1"
	if r, _ := configMap["region"].(string); r != "" {
		region = r
	}
	kmsKey, _ := configMap["kms_key_id"].(string)

	s := &AWSSSMStore{name: name, region: region, kmsKey: kmsKey}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		cfg, err := loadAWSConfig(configMap, region)
		if err != nil {
			return nil, err
		}
		var clientOpts []func(*ssm.Options)
		if endpoint, _ := configMap["endpoint"].(string); endpoint != "" {
			clientOpts = append(clientOpts, func(o *ssm.Options) {
				o.BaseEndpoint = aws.String(endpoint)
			})
		}
		s.client = ssm.NewFromConfig(cfg, clientOpts...)
	}
	return s, nil
}

// Name returns the configured store name.
func (s *AWSSSMStore) Name() string {
	return s.name
}

// Type returns aws.ssm.
func (s *AWSSSMStore) Type() string {
	return "aws.ssm"
}

// paramName converts a canonical ID to an absolute parameter path.
func paramName(id string) string {
	return "/" + strings.TrimPrefix(id, "/")
}

// canonicalID converts a parameter path back to a canonical ID.
func canonicalID(name string) string {
	return strings.TrimPrefix(name, "/")
}

// Get retrieves a parameter with decryption. A non-empty version uses the
// name:version selector.
func (s *AWSSSMStore) Get(ctx context.Context, id, version string) (Value, error) {
	name := paramName(id)
	if version != "" {
		name = name + ":" + version
	}

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		var badVersion *ssmtypes.ParameterVersionNotFound
		if errors.As(err, &notFound) || errors.As(err, &badVersion) {
			return Value{}, NotFoundError{Store: s.name, ID: id}
		}
		return Value{}, s.wrap("get", err)
	}

	return Value{
		Data:    []byte(aws.ToString(out.Parameter.Value)),
		Version: strconv.FormatInt(out.Parameter.Version, 10),
	}, nil
}

// Describe looks the parameter up by exact name.
func (s *AWSSSMStore) Describe(ctx context.Context, id string) (Info, error) {
	out, err := s.client.DescribeParameters(ctx, &ssm.DescribeParametersInput{
		ParameterFilters: []ssmtypes.ParameterStringFilter{{
			Key:    aws.String("Name"),
			Option: aws.String("Equals"),
			Values: []string{paramName(id)},
		}},
	})
	if err != nil {
		return Info{}, s.wrap("describe", err)
	}
	if len(out.Parameters) == 0 {
		return Info{Exists: false}, nil
	}

	meta := out.Parameters[0]
	info := Info{
		Exists:  true,
		ID:      id,
		Version: strconv.FormatInt(meta.Version, 10),
	}
	if meta.LastModifiedDate != nil {
		info.UpdatedAt = *meta.LastModifiedDate
	}
	return info, nil
}

// List walks the path hierarchy under the prefix.
func (s *AWSSSMStore) List(ctx context.Context, prefix string) ([]string, error) {
	path := "/"
	if prefix != "" {
		path = strings.TrimSuffix(paramName(prefix), "/")
	}

	var ids []string
	var nextToken *string
	for {
		out, err := s.client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:      aws.String(path),
			Recursive: aws.Bool(true),
			NextToken: nextToken,
		})
		if err != nil {
			return nil, s.wrap("list", err)
		}
		for _, p := range out.Parameters {
			ids = append(ids, canonicalID(aws.ToString(p.Name)))
		}

		if out.NextToken == nil {
			return ids, nil
		}
		nextToken = out.NextToken
	}
}

// Upsert writes a SecureString parameter, overwriting any existing value.
// Parameter Store keeps prior versions automatically.
func (s *AWSSSMStore) Upsert(ctx context.Context, id string, value []byte, labels map[string]string) (string, error) {
	input := &ssm.PutParameterInput{
		Name:      aws.String(paramName(id)),
		Value:     aws.String(string(value)),
		Type:      ssmtypes.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	}
	if s.kmsKey != "" {
		input.KeyId = aws.String(s.kmsKey)
	}
	// Parameter Store rejects tags on overwrite writes, so labels are only
	// applied to the parameter path, not re-asserted on every sync.

	out, err := s.client.PutParameter(ctx, input)
	if err != nil {
		return "", s.wrap("put", err)
	}
	return strconv.FormatInt(out.Version, 10), nil
}

// Delete removes the parameter.
func (s *AWSSSMStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteParameter(ctx, &ssm.DeleteParameterInput{
		Name: aws.String(paramName(id)),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return NotFoundError{Store: s.name, ID: id}
		}
		return s.wrap("delete", err)
	}
	return nil
}

// Validate describes one parameter to confirm connectivity and permissions.
func (s *AWSSSMStore) Validate(ctx context.Context) error {
	_, err := s.client.DescribeParameters(ctx, &ssm.DescribeParametersInput{
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return s.wrap("validate", err)
	}
	return nil
}

func (s *AWSSSMStore) wrap(operation string, err error) error {
	errStr := err.Error()
	if strings.Contains(errStr, "AccessDenied") || strings.Contains(errStr, "UnrecognizedClient") {
		return AuthError{Store: s.name, Message: errStr}
	}
	return maoserrors.StoreError(fmt.Sprintf("aws.ssm (%s)", s.region), operation, err)
}
