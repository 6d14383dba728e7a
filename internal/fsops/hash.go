package fsops

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash returns the xxhash of data.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// HashString formats the xxhash of data as lowercase hex.
func HashString(data []byte) string {
	return strconv.FormatUint(Hash(data), 16)
}

// HashFile streams the file at path through xxhash.
func HashFile(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return d.Sum64(), nil
}
