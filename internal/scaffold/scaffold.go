// Package scaffold creates a starter sfdeploy project: configuration, an
// .env template and one sample artifact per folder, including a two-task chain.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

//go:embed all:templates
var templatesFS embed.FS

const templateRoot = "templates/default"

// Values fill the template placeholders. {{NAME}} is replaced verbatim and
// {{NAME|yaml}} as a single-quoted YAML scalar.
type Values struct {
	ProjectName    string
	Account        string
	User           string
	Database       string
	Role           string
	Warehouse      string
	AuthMethod     sfdeploy.AuthMethod
	PrivateKeyPath string
	TablesSchema   string
	ProcsSchema    string
	TasksSchema    string
}

// DefaultValues returns the values used when nobody is asked.
func DefaultValues(projectName string) Values {
	return Values{
		ProjectName:  projectName,
		Role:         "DEPLOYER",
		Warehouse:    "DEPLOY_WH",
		AuthMethod:   sfdeploy.AuthMethodPassword,
		TablesSchema: "RPT",
		ProcsSchema:  "XFRM",
		TasksSchema:  "XFRM",
	}
}

// Validate checks the values that end up as SQL identifiers.
func (v Values) Validate() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"warehouse", v.Warehouse},
		{"tables schema", v.TablesSchema},
		{"procedures schema", v.ProcsSchema},
		{"tasks schema", v.TasksSchema},
	} {
		if !sfdeploy.IsValidIdentifier(f.value) {
			errs = append(errs, fmt.Errorf("%s %q is not a valid identifier: %w", f.name, f.value, sfdeploy.ErrInvalidConfig))
		}
	}
	for _, f := range []struct{ name, value string }{{"database", v.Database}, {"role", v.Role}} {
		if f.value != "" && !sfdeploy.IsValidIdentifier(f.value) {
			errs = append(errs, fmt.Errorf("%s %q is not a valid identifier: %w", f.name, f.value, sfdeploy.ErrInvalidConfig))
		}
	}
	if !v.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", v.AuthMethod, sfdeploy.ErrUnsupportedAuthMethod))
	}
	return errors.Join(errs...)
}

func (v Values) replacer() *strings.Replacer {
	var pairs []string
	for _, kv := range []struct{ key, value string }{
		{"PROJECT_NAME", v.ProjectName},
		{"ACCOUNT", v.Account},
		{"USER", v.User},
		{"DATABASE", v.Database},
		{"ROLE", v.Role},
		{"WAREHOUSE", v.Warehouse},
		{"AUTH_METHOD", v.AuthMethod.String()},
		{"PRIVATE_KEY_PATH", v.PrivateKeyPath},
		{"TABLES_SCHEMA", v.TablesSchema},
		{"PROCS_SCHEMA", v.ProcsSchema},
		{"TASKS_SCHEMA", v.TasksSchema},
	} {
		pairs = append(pairs,
			"{{"+kv.key+"|yaml}}", "'"+strings.ReplaceAll(kv.value, "'", "''")+"'",
			"{{"+kv.key+"}}", kv.value,
		)
	}
	return strings.NewReplacer(pairs...)
}

// Scaffolder writes the embedded project template.
type Scaffolder struct {
	logger sfdeploy.Logger
}

// NewScaffolder creates a Scaffolder. Panics if logger is nil.
func NewScaffolder(logger sfdeploy.Logger) *Scaffolder {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Scaffolder{logger: logger}
}

// CreateProject writes the template into targetPath, which must be empty or
// absent, with placeholders filled from values.
func (s *Scaffolder) CreateProject(targetPath string, values Values) error {
	if err := values.Validate(); err != nil {
		return err
	}
	isEmpty, err := isDirectoryEmpty(targetPath)
	if err != nil {
		return fmt.Errorf("failed to check target directory: %w", err)
	}
	if !isEmpty {
		return fmt.Errorf("target directory %s is not empty; sfdeploy init never overwrites files: %w", targetPath, sfdeploy.ErrUsage)
	}

	if err := os.MkdirAll(targetPath, 0o755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	s.logger.Verbose("Creating project %q at %s", values.ProjectName, targetPath)
	if err := s.copyTemplateFiles(targetPath, values.replacer()); err != nil {
		return fmt.Errorf("failed to copy template files: %w", err)
	}
	return nil
}

func (s *Scaffolder) copyTemplateFiles(targetPath string, r *strings.Replacer) error {
	return fs.WalkDir(templatesFS, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == templateRoot {
			return nil
		}

		relPath := strings.TrimPrefix(p, templateRoot+"/")
		targetFilePath := filepath.Join(targetPath, filepath.FromSlash(relPath))

		if d.IsDir() {
			s.logger.Verbose("Creating directory: %s", relPath)
			return os.MkdirAll(targetFilePath, 0o755)
		}

		content, err := templatesFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", p, err)
		}
		content = []byte(r.Replace(string(content)))

		s.logger.Verbose("Creating file: %s", relPath)
		if err := os.WriteFile(targetFilePath, content, 0o644); err != nil {
			return fmt.Errorf("failed to write file %s: %w", targetFilePath, err)
		}
		return nil
	})
}

// TemplateFiles lists the slash-separated paths the template creates.
func TemplateFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(templatesFS, templateRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := strings.CutPrefix(p, templateRoot+"/")
			files = append(files, path.Clean(rel))
		}
		return nil
	})
	return files, err
}

// isDirectoryEmpty reports true for a missing or empty directory.
func isDirectoryEmpty(p string) (bool, error) {
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check directory: %w", err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("path exists but is not a directory")
	}

	entries, err := os.ReadDir(p)
	if err != nil {
		return false, fmt.Errorf("failed to read directory: %w", err)
	}
	return len(entries) == 0, nil
}

// BuildFileTree renders the directory under rootPath as a tree.
func BuildFileTree(rootPath string) (string, error) {
	var sb strings.Builder
	sb.WriteString(filepath.Base(rootPath) + "/\n")
	if err := writeTree(&sb, rootPath, ""); err != nil {
		return "", fmt.Errorf("failed to build file tree: %w", err)
	}
	return sb.String(), nil
}

func writeTree(sb *strings.Builder, dir, prefix string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for i, entry := range entries {
		branch, indent := "├── ", "│   "
		if i == len(entries)-1 {
			branch, indent = "└── ", "    "
		}
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		sb.WriteString(prefix + branch + name + "\n")
		if entry.IsDir() {
			if err := writeTree(sb, filepath.Join(dir, entry.Name()), prefix+indent); err != nil {
				return err
			}
		}
	}
	return nil
}
