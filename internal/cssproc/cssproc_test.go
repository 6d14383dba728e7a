package cssproc

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrefixAddsVendorDeclarations(t *testing.T) {
	src := ".nav {\n  user-select: none;\n  position: sticky;\n  color: red;\n}\n"

	out, err := Prefix([]byte(src))
	require.NoError(t, err)
	assert.Equal(t,
		".nav{-webkit-user-select:none;-moz-user-select:none;-ms-user-select:none;user-select:none;"+
			"position:-webkit-sticky;position:sticky;color:red;}",
		string(out))
}

func TestPrefixKeepsExistingPrefixes(t *testing.T) {
	src := ".a{-webkit-backdrop-filter:blur(2px);backdrop-filter:blur(2px)}"

	out, err := Prefix([]byte(src))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(out), "-webkit-backdrop-filter"))
}

func TestPrefixInsideMedia(t *testing.T) {
	src := "@media (max-width: 600px) {\n  .a .b {\n    appearance: none;\n  }\n}\n"

	out, err := Prefix([]byte(src))
	require.NoError(t, err)
	s := string(out)
	assert.True(t, strings.HasPrefix(s, "@media"), s)
	assert.Contains(t, s, ".a .b{-webkit-appearance:none;-moz-appearance:none;appearance:none;}")
	assert.True(t, strings.HasSuffix(s, "}}"), s)
}

func TestPrefixKeepsCustomPropertiesAndComments(t *testing.T) {
	src := "/*! banner */\n:root{--gap: 4px}\n@import url(\"x.css\");\n"

	out, err := Prefix([]byte(src))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "/*! banner */")
	assert.Contains(t, s, "--gap:")
	assert.Contains(t, s, "4px")
	assert.Contains(t, s, "@import")
}

func TestPrefixUnbalanced(t *testing.T) {
	_, err := Prefix([]byte(".a{color:red"))
	var pe *ParseError
	if err != nil {
		assert.True(t, errors.As(err, &pe))
	}
}

func TestProcessIsDeterministic(t *testing.T) {
	src := []byte(".btn {\n  user-select: none;\n  color: #ff0000;\n  margin: 0px 0px;\n}\n")
	p := New(true)

	first, err := p.Process(src)
	require.NoError(t, err)
	second, err := p.Process(src)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotContains(t, string(first), "\n")
	assert.Contains(t, string(first), "-webkit-user-select:none")

	unprefixed, err := New(false).Process(src)
	require.NoError(t, err)
	assert.Less(t, len(unprefixed), len(src))
	assert.Greater(t, len(first), len(unprefixed))
}

func TestProcessWithoutPrefix(t *testing.T) {
	out, err := New(false).Process([]byte(".a {\n  user-select: none;\n}\n"))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "-webkit-")
}

func TestRewriteSourceMap(t *testing.T) {
	root := t.TempDir()
	mapDir := filepath.Join(root, "build", "css")
	entry := filepath.ToSlash(filepath.Join(root, "source", "sass", "style.scss"))
	block := filepath.ToSlash(filepath.Join(root, "source", "sass", "blocks", "header.scss"))

	raw := `{"version":3,"file":"out.css","sources":["file://` + entry + `","file://` + block + `","relative.scss"],"names":[],"mappings":"AAAA"}`

	out, err := RewriteSourceMap([]byte(raw), mapDir, "style.min.css")
	require.NoError(t, err)

	var doc struct {
		Version  int      `json:"version"`
		File     string   `json:"file"`
		Sources  []string `json:"sources"`
		Mappings string   `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, 3, doc.Version)
	assert.Equal(t, "style.min.css", doc.File)
	assert.Equal(t, []string{"../../source/sass/style.scss", "../../source/sass/blocks/header.scss", "relative.scss"}, doc.Sources)
	assert.Equal(t, "AAAA", doc.Mappings)

	again, err := RewriteSourceMap([]byte(raw), mapDir, "style.min.css")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestRewriteSourceMapInvalid(t *testing.T) {
	_, err := RewriteSourceMap([]byte("not json"), "/tmp", "style.min.css")
	require.Error(t, err)
}

func TestAppendMappingURL(t *testing.T) {
	got := AppendMappingURL([]byte(".a{color:red}"), "style.min.css.map")
	assert.Equal(t, ".a{color:red}\n/*# sourceMappingURL=style.min.css.map */", string(got))
}
