package secrets

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/Rajchodisetti/quote-engine/internal/observ"
)

// SecretsManagerAPI is the part of the Secrets Manager client we call.
//
//go:generate mockgen -package=secrets -destination=mock_secretsmanager_test.go -source=secretsmanager.go SecretsManagerAPI
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManager reads plain-string secrets from AWS Secrets Manager.
type SecretsManager struct {
	client  SecretsManagerAPI
	timeout time.Duration
	logger  observ.Logger
}

func NewSecretsManager(client SecretsManagerAPI, logger observ.Logger) *SecretsManager {
	if logger == nil {
		logger = observ.Default()
	}
	return &SecretsManager{client: client, timeout: 5 * time.Second, logger: logger}
}

// NewAWSSecretsManager loads the default AWS credential chain for region.
func NewAWSSecretsManager(ctx context.Context, region string, logger observ.Logger) (*SecretsManager, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewSecretsManager(secretsmanager.NewFromConfig(cfg), logger), nil
}

// GetSecret returns the SecretString for id. Any failure is logged and
// reported as absent so callers can fall back.
func (s *SecretsManager) GetSecret(ctx context.Context, id string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		s.logger.Log(observ.LevelWarn, "secret_unavailable", map[string]any{
			"secret": id,
			"error":  err.Error(),
		})
		return "", false
	}
	v := aws.ToString(out.SecretString)
	if v == "" {
		return "", false
	}
	return v, true
}
