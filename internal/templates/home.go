package templates

import (
	"fmt"
	"os"
	"path/filepath"
)

// CreateHomeDirs creates the home directory and its models and public
// subdirectories.
func CreateHomeDirs(home string) error {
	subdirs := []string{"models", "public"}
	if err := os.MkdirAll(home, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}

	for _, subdir := range subdirs {
		dir := filepath.Join(home, subdir)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", subdir, err)
		}
	}

	return nil
}

// WriteHomeTemplates writes config.yaml and .env into home unless they
// already exist. It returns the paths it created.
func WriteHomeTemplates(home string) ([]string, error) {
	files := []struct {
		name  string
		write func(string) error
	}{
		{"config.yaml", WriteConfig},
		{".env", WriteEnv},
	}

	var created []string
	for _, f := range files {
		path := filepath.Join(home, f.name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return created, fmt.Errorf("failed to stat %s: %w", f.name, err)
		}

		if err := f.write(path); err != nil {
			return created, fmt.Errorf("failed to create %s: %w", f.name, err)
		}
		created = append(created, path)
	}

	return created, nil
}
