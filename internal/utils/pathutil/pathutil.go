package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands environment variables in path and replaces a leading
// "~" with the user's home directory. Other paths are returned unchanged.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	path = os.ExpandEnv(path)

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		path = filepath.Join(homeDir, path[1:])
	}

	return path, nil
}
