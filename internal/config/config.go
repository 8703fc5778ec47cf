package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Account        string `yaml:"account"`
	User           string `yaml:"user"`
	Role           string `yaml:"role,omitempty"`
	Warehouse      string `yaml:"warehouse,omitempty"`
	Database       string `yaml:"database"`
	AuthMethod     string `yaml:"auth_method,omitempty"`
	PrivateKeyPath string `yaml:"private_key_path,omitempty"`
	LoginTimeout   string `yaml:"login_timeout,omitempty"`
}

type ProjectConfig struct {
	Folders         []sfdeploy.FolderMapping `yaml:"folders"`
	Discovery       string                   `yaml:"discovery"`
	ManifestFile    string                   `yaml:"manifest_file,omitempty"`
	ManifestEnv     string                   `yaml:"manifest_env,omitempty"`
	BaseRef         string                   `yaml:"base_ref,omitempty"`
	HeadRef         string                   `yaml:"head_ref,omitempty"`
	ArchiveDir      string                   `yaml:"archive_dir,omitempty"`
	RetentionDays   *int                     `yaml:"retention_days,omitempty"`
	FingerprintFile string                   `yaml:"fingerprint_file,omitempty"`
	FingerprintMode string                   `yaml:"fingerprint_mode,omitempty"`
	OnError         string                   `yaml:"on_error,omitempty"`
	Connection      ConnectionConfig         `yaml:"connection"`
	Timeout         string                   `yaml:"timeout"`
}

const ConfigFileName = "sfdeploy.yaml"

func Load(sourcePath string) (*ProjectConfig, error) {
	configPath := filepath.Join(sourcePath, ConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", ConfigFileName, err, sfdeploy.ErrInvalidConfig)
	}
	return &cfg, nil
}
