package csssort

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yaklabco/stipple/internal/fsops"
)

// Sort sorts src according to the syntax implied by the file name: ".sass"
// uses the indented syntax, everything else the brace syntax.
func Sort(name, src string) (string, error) {
	if strings.EqualFold(filepath.Ext(name), ".sass") {
		return SortIndented(src), nil
	}
	return SortSCSS(src)
}

// SortFile rewrites path in place when sorting changes it and reports
// whether it did.
func SortFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	sorted, err := Sort(path, string(data))
	if err != nil {
		return false, fmt.Errorf("sort %s: %w", path, err)
	}
	if sorted == string(data) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return fsops.WriteAtomic(path, []byte(sorted), info.Mode().Perm())
}
