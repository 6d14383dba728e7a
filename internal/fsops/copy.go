package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/yaklabco/stipple/internal/dryrun"
)

// UpToDate reports whether dst exists with the same content as src and is
// not older than it.
func UpToDate(dst, src string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	dstInfo, err := os.Stat(dst)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if dstInfo.Size() != srcInfo.Size() || dstInfo.ModTime().Before(srcInfo.ModTime()) {
		return false, nil
	}

	srcHash, err := HashFile(src)
	if err != nil {
		return false, err
	}
	dstHash, err := HashFile(dst)
	if err != nil {
		return false, err
	}
	return srcHash == dstHash, nil
}

// CopyFile copies src to dst, creating parent directories and keeping the
// file mode. It skips the copy when dst is already up to date and reports
// whether anything was written.
func CopyFile(dst, src string) (bool, error) {
	fresh, err := UpToDate(dst, src)
	if err != nil {
		return false, fmt.Errorf("can't copy %s: %w", src, err)
	}
	if fresh {
		return false, nil
	}

	if dryrun.IsDryRun() {
		_, err := fmt.Println("DRYRUN: cp", src, dst) //nolint:forbidigo // intentional console output
		return true, err
	}

	from, err := os.Open(src)
	if err != nil {
		return false, fmt.Errorf("can't copy %s: %w", src, err)
	}
	defer func() { _ = from.Close() }()

	info, err := from.Stat()
	if err != nil {
		return false, fmt.Errorf("can't stat %s: %w", src, err)
	}

	err = writeTemp(dst, info.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, from)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("error copying %s to %s: %w", src, dst, err)
	}
	return true, nil
}

// RemoveAll removes path and everything below it. A missing path is not
// an error.
func RemoveAll(path string) error {
	if dryrun.IsDryRun() {
		_, err := fmt.Println("DRYRUN: rm", path) //nolint:forbidigo // intentional console output
		return err
	}

	err := os.RemoveAll(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to remove %s: %w", path, err)
}
