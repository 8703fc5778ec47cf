package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// DotEnvFileName is read from the project directory before the environment.
const DotEnvFileName = ".env"

// Env holds the settings read from environment variables. Empty fields were
// not set.
type Env struct {
	Account              string `env:"SNOWFLAKE_ACCOUNT"`
	User                 string `env:"SNOWFLAKE_USER"`
	Password             string `env:"SNOWFLAKE_PASSWORD"`
	Role                 string `env:"SNOWFLAKE_ROLE"`
	Warehouse            string `env:"SNOWFLAKE_WAREHOUSE"`
	Database             string `env:"SNOWFLAKE_DATABASE"`
	Authenticator        string `env:"SNOWFLAKE_AUTHENTICATOR"`
	PrivateKeyPath       string `env:"SNOWFLAKE_PRIVATE_KEY_PATH"`
	PrivateKey           string `env:"SNOWFLAKE_PRIVATE_KEY"`
	PrivateKeyPassphrase string `env:"SNOWFLAKE_PRIVATE_KEY_PASSPHRASE"`

	Discovery       string        `env:"SFDEPLOY_DISCOVERY"`
	BaseRef         string        `env:"SFDEPLOY_BASE_REF"`
	HeadRef         string        `env:"SFDEPLOY_HEAD_REF"`
	OnError         string        `env:"SFDEPLOY_ON_ERROR"`
	RetentionDays   *int          `env:"SFDEPLOY_RETENTION_DAYS"`
	FingerprintMode string        `env:"SFDEPLOY_FINGERPRINT_MODE"`
	ArchiveDir      string        `env:"SFDEPLOY_ARCHIVE_DIR"`
	Timeout         time.Duration `env:"SFDEPLOY_TIMEOUT"`
}

// LoadEnvironment returns the process environment laid over the project's
// .env file. Variables already set in the process win. The process
// environment itself is not modified.
func LoadEnvironment(projectPath string) (map[string]string, error) {
	merged := make(map[string]string)

	values, err := godotenv.Read(filepath.Join(projectPath, DotEnvFileName))
	switch {
	case err == nil:
		maps.Copy(merged, values)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("%s: %v: %w", DotEnvFileName, err, sfdeploy.ErrInvalidConfig)
	}

	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	return merged, nil
}

// ParseEnv decodes environ into Env.
func ParseEnv(environ map[string]string) (Env, error) {
	e, err := env.ParseAsWithOptions[Env](env.Options{Environment: environ})
	if err != nil {
		return Env{}, fmt.Errorf("environment: %v: %w", err, sfdeploy.ErrInvalidConfig)
	}
	return e, nil
}
