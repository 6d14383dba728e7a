package csssort

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, Positioning, CategoryOf("position"))
	assert.Equal(t, BoxModel, CategoryOf("margin-top"))
	assert.Equal(t, Typography, CategoryOf("FONT-SIZE"))
	assert.Equal(t, Visual, CategoryOf("-webkit-box-shadow"))
	assert.Equal(t, Misc, CategoryOf("scroll-snap-type"))
	assert.Equal(t, "box model", BoxModel.String())
}

func TestSortSCSSOrdersCategories(t *testing.T) {
	src := `.header {
  color: #333;
  background: white;
  display: flex;
  position: relative;
  top: 0;
}
`
	want := `.header {
  position: relative;
  top: 0;
  display: flex;
  color: #333;
  background: white;
}
`
	got, err := SortSCSS(src)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSortSCSSBarriersAndNesting(t *testing.T) {
	src := `.card {
  color: red; // brand
  margin: 0;
  $gap: 4px;
  /* spacing */
  padding: $gap;
  position: absolute;
  @include shadow(2);
  &:hover {
    opacity: 0.5;
    display: block
  }
  background: url(//cdn.example.com/a.png);
  z-index: 2;
}
`
	want := `.card {
  margin: 0;
  color: red; // brand
  $gap: 4px;
  position: absolute;
  /* spacing */
  padding: $gap;
  @include shadow(2);
  &:hover {
    display: block;
    opacity: 0.5;
  }
  z-index: 2;
  background: url(//cdn.example.com/a.png);
}
`
	got, err := SortSCSS(src)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSortSCSSInterpolationAndStrings(t *testing.T) {
	src := `.icon-#{$name} {
  content: "}{;";
  width: #{$size}px;
}
`
	want := `.icon-#{$name} {
  width: #{$size}px;
  content: "}{;";
}
`
	got, err := SortSCSS(src)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSortSCSSIdempotent(t *testing.T) {
	src := `.nav {
  color: blue;
  float: left;
  .nav__item { border: 0; width: 10px }
  font-size: 12px;
  height: 20px
}
`
	once, err := SortSCSS(src)
	require.NoError(t, err)
	twice, err := SortSCSS(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestSortSCSSLineCommentKeepsFollowingDeclaration(t *testing.T) {
	got, err := SortSCSS(".a { color: red; display: block // note\n}\n")
	require.NoError(t, err)
	assert.Equal(t, ".a {display: block; // note\n color: red; \n}\n", got)

	got, err = SortSCSS(".b { color: red; display: block; // note\n}")
	require.NoError(t, err)
	assert.Equal(t, ".b {display: block; // note\n color: red; \n}", got)

	again, err := SortSCSS(got)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestSortSCSSTrailingCommentAtEOF(t *testing.T) {
	src := "$a: 1; // last"
	got, err := SortSCSS(src)
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestSortSCSSUnbalanced(t *testing.T) {
	_, err := SortSCSS(".a { color: red;")
	require.ErrorIs(t, err, ErrUnbalanced)

	_, err = SortSCSS(".a { color: red; } }")
	require.ErrorIs(t, err, ErrUnbalanced)
}

func TestSortIndented(t *testing.T) {
	src := `.header
  color: red
  position: relative
  font:
    family: serif
  margin: 0
  display: block
  &:hover
    opacity: 1
`
	want := `.header
  position: relative
  color: red
  font:
    family: serif
  display: block
  margin: 0
  &:hover
    opacity: 1
`
	got := SortIndented(src)
	assert.Equal(t, want, got)
	assert.Equal(t, got, SortIndented(got))
}

func TestSortIndentedMissingFinalNewline(t *testing.T) {
	got := SortIndented(".a\n  color: red\n  top: 0")
	assert.Equal(t, ".a\n  top: 0\n  color: red", got)
}

func TestSortFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "header.scss")
	require.NoError(t, os.WriteFile(path, []byte(".a {\n  color: red;\n  top: 0;\n}\n"), 0o644))

	changed, err := SortFile(path)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ".a {\n  top: 0;\n  color: red;\n}\n", string(data))

	changed, err = SortFile(path)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSortDispatchesOnExtension(t *testing.T) {
	got, err := Sort("blocks/x.SASS", ".a\n  color: red\n  top: 0\n")
	require.NoError(t, err)
	assert.Equal(t, ".a\n  top: 0\n  color: red\n", got)
}
