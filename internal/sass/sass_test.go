package sass

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripSourceMappingURL(t *testing.T) {
	in := []byte(".a {\n  color: red;\n}\n\n/*# sourceMappingURL=out.css.map */\n")
	assert.Equal(t, ".a {\n  color: red;\n}\n", string(StripSourceMappingURL(in)))

	plain := []byte(".a{color:red}")
	assert.Equal(t, plain, StripSourceMappingURL(plain))
}

func TestCompileErrorMessage(t *testing.T) {
	err := error(&CompileError{Entry: "style.scss", Message: "Error: expected \";\".\n", Code: 65})
	assert.Equal(t, `compile style.scss: Error: expected ";".`, err.Error())
	assert.True(t, IsCompileError(err))
	assert.True(t, IsCompileError(errors.Join(errors.New("css"), err)))
	assert.False(t, IsCompileError(errors.New("plain")))

	empty := &CompileError{Entry: "style.scss", Code: 1}
	assert.Equal(t, "compile style.scss: exit code 1", empty.Error())
}

func TestDartSassArgs(t *testing.T) {
	d := NewDartSass("")
	assert.Equal(t, DefaultBinary, d.Binary)

	args := d.args("in.scss", "out.css", Options{SourceMap: true, LoadPaths: []string{"node_modules"}})
	assert.Equal(t, []string{
		"--no-error-css", "--style=expanded",
		"--source-map", "--source-map-urls=absolute", "--no-embed-sources",
		"--load-path=node_modules",
		"in.scss", "out.css",
	}, args)

	args = d.args("in.scss", "out.css", Options{})
	assert.Contains(t, args, "--no-source-map")
}

func TestDartSassMissingBinary(t *testing.T) {
	d := NewDartSass("stipple-no-such-sass")
	_, err := d.Compile(context.Background(), "style.scss", Options{})
	require.Error(t, err)
	assert.False(t, IsCompileError(err))

	_, err = d.Version(context.Background())
	require.Error(t, err)
}

func TestDartSassCompile(t *testing.T) {
	if _, err := exec.LookPath(DefaultBinary); err != nil {
		t.Skip("sass not on PATH")
	}

	dir := t.TempDir()
	entry := filepath.Join(dir, "style.scss")
	require.NoError(t, os.WriteFile(entry, []byte("$c: red;\n.a { .b { color: $c; } }\n"), 0o644))

	res, err := NewDartSass("").Compile(context.Background(), entry, Options{SourceMap: true})
	require.NoError(t, err)
	assert.Contains(t, string(res.CSS), ".a .b")
	assert.NotContains(t, string(res.CSS), "sourceMappingURL")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(string(res.Map)), "{"))

	version, err := NewDartSass("").Version(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, version)

	require.NoError(t, os.WriteFile(entry, []byte(".a { color: }\n"), 0o644))
	_, err = NewDartSass("").Compile(context.Background(), entry, Options{})
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}
