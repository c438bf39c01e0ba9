// Package secrets resolves provider API keys. Lookups never fail loudly:
// a missing key means the provider is skipped.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Rajchodisetti/quote-engine/internal/config"
	"github.com/Rajchodisetti/quote-engine/internal/observ"
)

// Source looks up a secret by name.
type Source interface {
	GetSecret(ctx context.Context, name string) (string, bool)
}

// Credential names one API key: its id in the secret store and the
// environment variable that backs it up.
type Credential struct {
	SecretName string
	EnvVar     string
}

// Env treats secret names as environment variable names.
type Env struct {
	lookup func(string) (string, bool)
}

func NewEnv() *Env {
	return &Env{lookup: os.LookupEnv}
}

func (e *Env) GetSecret(_ context.Context, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	v, ok := e.lookup(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Keyring resolves credentials against a primary store, falling back to
// the environment.
type Keyring struct {
	primary Source
	env     Source
	logger  observ.Logger
}

// KeyringOption configures a Keyring.
type KeyringOption func(*Keyring)

func WithLogger(l observ.Logger) KeyringOption {
	return func(k *Keyring) { k.logger = l }
}

// WithEnv replaces the environment fallback, mostly for tests.
func WithEnv(env Source) KeyringOption {
	return func(k *Keyring) { k.env = env }
}

// NewKeyring creates a keyring. A nil primary means environment only.
func NewKeyring(primary Source, opts ...KeyringOption) *Keyring {
	k := &Keyring{primary: primary, env: NewEnv(), logger: observ.Default()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Lookup returns the credential value and whether one was found.
func (k *Keyring) Lookup(ctx context.Context, c Credential) (string, bool) {
	if k.primary != nil && c.SecretName != "" {
		if v, ok := k.primary.GetSecret(ctx, c.SecretName); ok {
			k.logger.Log(observ.LevelInfo, "secret_loaded", map[string]any{
				"secret": c.SecretName,
				"from":   "store",
			})
			return v, true
		}
	}
	if v, ok := k.env.GetSecret(ctx, c.EnvVar); ok {
		k.logger.Log(observ.LevelInfo, "secret_loaded", map[string]any{
			"secret": c.SecretName,
			"from":   "env",
			"env":    c.EnvVar,
		})
		return v, true
	}
	return "", false
}

// Open builds the keyring selected by config.
func Open(ctx context.Context, cfg config.Secrets, logger observ.Logger) (*Keyring, error) {
	switch cfg.Backend {
	case "env", "":
		return NewKeyring(nil, WithLogger(logger)), nil
	case "aws":
		sm, err := NewAWSSecretsManager(ctx, cfg.Region, logger)
		if err != nil {
			return nil, fmt.Errorf("secrets manager: %w", err)
		}
		return NewKeyring(sm, WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Backend)
	}
}
