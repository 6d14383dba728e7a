package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

func errorsIsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// TruePath returns path made absolute with every symlink resolved, repeating
// until the result is stable.
func TruePath(path string) (string, error) {
	var prevAbsPath string
	var prevResolvedPath string

	changeFound := true
	for changeFound {
		changeFound = false

		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		if absPath != prevAbsPath {
			prevAbsPath = absPath
			changeFound = true
		}

		resolvedPath, err := filepath.EvalSymlinks(absPath)
		if err != nil {
			return "", fmt.Errorf("failed to resolve symlinks: %w", err)
		}
		if resolvedPath != prevResolvedPath {
			prevResolvedPath = resolvedPath
			changeFound = true
		}

		path = resolvedPath
	}

	return path, nil
}

// Within reports whether target lies inside dir (or is dir itself).
func Within(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel))
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
