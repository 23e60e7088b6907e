package pathtmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	got := Expand("assets/[name]-[hash][extname]", Placeholders{
		Name:    "logo",
		Hash:    "abcd1234",
		ExtName: ".png",
		Ext:     "png",
	})
	assert.Equal(t, "assets/logo-abcd1234.png", got)
}

func TestExpandLeavesUnknownTokensAlone(t *testing.T) {
	got := Expand("[dir]/[name].js", Placeholders{Name: "main"})
	assert.Equal(t, "[dir]/main.js", got)
}

func TestSplitExt(t *testing.T) {
	base, ext := SplitExt("src/components/button.tsx")
	assert.Equal(t, "src/components/button", base)
	assert.Equal(t, ".tsx", ext)
}

func TestSplitExtNoExtension(t *testing.T) {
	base, ext := SplitExt("README")
	assert.Equal(t, "README", base)
	assert.Equal(t, "", ext)
}

func TestSplitExtDotfile(t *testing.T) {
	// A leading dot with no further dot is not treated as an extension
	// separator (dot index must be > 0 within the file segment).
	base, ext := SplitExt(".gitignore")
	assert.Equal(t, ".gitignore", base)
	assert.Equal(t, "", ext)
}

func TestContentHashIsStableAndEightChars(t *testing.T) {
	h1 := ContentHash([]byte("hello world"))
	h2 := ContentHash([]byte("hello world"))
	assert.Len(t, h1, 8)
	assert.Equal(t, h1, h2)

	h3 := ContentHash([]byte("hello World"))
	assert.NotEqual(t, h1, h3)
}

func TestDisambiguate(t *testing.T) {
	assert.Equal(t, "chunk2.js", Disambiguate("chunk.js", 2))
	assert.Equal(t, "chunk3.js", Disambiguate("chunk.js", 3))
}
