package db

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"github.com/snowflakedb/gosnowflake"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
	"github.com/youmark/pkcs8"
)

// CredentialProvider attaches authentication material to a driver config.
type CredentialProvider interface {
	// Apply sets the authenticator and secrets on cfg.
	Apply(cfg *gosnowflake.Config) error

	// String describes the provider for logs. Must not include secrets.
	String() string
}

// PasswordCredentials authenticates with user and password.
type PasswordCredentials struct {
	Password string
}

func (p *PasswordCredentials) Apply(cfg *gosnowflake.Config) error {
	if p.Password == "" {
		return fmt.Errorf("password is empty: %w", sfdeploy.ErrInvalidConfig)
	}
	cfg.Authenticator = gosnowflake.AuthTypeSnowflake
	cfg.Password = p.Password
	return nil
}

func (p *PasswordCredentials) String() string { return "password" }

// KeyPairCredentials authenticates with an RSA private key (JWT).
// PEM wins over Path when both are set.
type KeyPairCredentials struct {
	Path       string
	PEM        string
	Passphrase string
}

func (k *KeyPairCredentials) Apply(cfg *gosnowflake.Config) error {
	key, err := k.PrivateKey()
	if err != nil {
		return err
	}
	cfg.Authenticator = gosnowflake.AuthTypeJwt
	cfg.PrivateKey = key
	return nil
}

func (k *KeyPairCredentials) String() string {
	if k.PEM != "" {
		return "keypair(inline)"
	}
	return fmt.Sprintf("keypair(%s)", k.Path)
}

// PrivateKey loads and parses the configured key.
func (k *KeyPairCredentials) PrivateKey() (*rsa.PrivateKey, error) {
	data := []byte(k.PEM)
	source := "SNOWFLAKE_PRIVATE_KEY"
	if k.PEM == "" {
		if k.Path == "" {
			return nil, fmt.Errorf("no private key configured: %w", sfdeploy.ErrInvalidConfig)
		}
		var err error
		data, err = os.ReadFile(k.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %v: %w", k.Path, err, sfdeploy.ErrInvalidConfig)
		}
		source = k.Path
	} else if !strings.Contains(k.PEM, "\n") {
		// CI secrets often carry the PEM on one line with escaped newlines
		data = []byte(strings.ReplaceAll(k.PEM, `\n`, "\n"))
	}

	key, err := ParsePrivateKey(data, k.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("private key from %s: %w", source, err)
	}
	return key, nil
}

// ParsePrivateKey decodes a PEM encoded RSA key in PKCS#8, encrypted PKCS#8
// or PKCS#1 form. Errors match sfdeploy.ErrInvalidConfig.
func ParsePrivateKey(data []byte, passphrase string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found: %w", sfdeploy.ErrInvalidConfig)
	}

	switch block.Type {
	case "ENCRYPTED PRIVATE KEY":
		if passphrase == "" {
			return nil, fmt.Errorf("key is encrypted, set SNOWFLAKE_PRIVATE_KEY_PASSPHRASE: %w", sfdeploy.ErrInvalidConfig)
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt key: %v: %w", err, sfdeploy.ErrInvalidConfig)
		}
		return key, nil

	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid PKCS#8 key: %v: %w", err, sfdeploy.ErrInvalidConfig)
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("key is %T, Snowflake requires RSA: %w", parsed, sfdeploy.ErrInvalidConfig)
		}
		return key, nil

	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid PKCS#1 key: %v: %w", err, sfdeploy.ErrInvalidConfig)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("unsupported PEM block %q: %w", block.Type, sfdeploy.ErrInvalidConfig)
	}
}

// NewCredentialProvider returns the provider for config.AuthMethod.
func NewCredentialProvider(config *sfdeploy.ConnectionConfig) (CredentialProvider, error) {
	switch config.AuthMethod {
	case sfdeploy.AuthMethodPassword:
		return &PasswordCredentials{Password: config.Password}, nil
	case sfdeploy.AuthMethodKeyPair:
		return &KeyPairCredentials{
			Path:       config.PrivateKeyPath,
			PEM:        config.PrivateKeyPEM,
			Passphrase: config.PrivateKeyPassphrase,
		}, nil
	default:
		return nil, fmt.Errorf("auth method %v: %w", config.AuthMethod, sfdeploy.ErrUnsupportedAuthMethod)
	}
}
