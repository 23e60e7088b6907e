// Package pathtmpl expands the [name]/[hash]/[extname]/[ext]/[format]
// filename placeholders shared by chunk and asset name templates.
package pathtmpl

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
)

// Placeholders is the set of values a template may reference.
type Placeholders struct {
	Name    string
	Hash    string // pre-computed; see ContentHash for the default derivation
	ExtName string // includes leading dot, e.g. ".png"
	Ext     string // no leading dot, e.g. "png"
	Format  string
}

// Expand substitutes every placeholder present in template. Unknown
// bracketed tokens are left untouched rather than rejected.
func Expand(template string, p Placeholders) string {
	r := strings.NewReplacer(
		"[name]", p.Name,
		"[hash]", p.Hash,
		"[extname]", p.ExtName,
		"[ext]", p.Ext,
		"[format]", p.Format,
	)
	return r.Replace(template)
}

// SplitExt splits "dir/base.ext" into ("dir/base", ".ext"); with no
// extension, ext is "".
func SplitExt(name string) (base, ext string) {
	slash := strings.LastIndexAny(name, "/\\")
	dir, file := "", name
	if slash >= 0 {
		dir, file = name[:slash+1], name[slash+1:]
	}
	if dot := strings.LastIndexByte(file, '.'); dot > 0 {
		return dir + file[:dot], file[dot:]
	}
	return dir + file, ""
}

// ContentHash returns the first 8 hex characters of a stable hash over
// source bytes.
func ContentHash(source []byte) string {
	sum := sha1.Sum(source)
	return hex.EncodeToString(sum[:])[:8]
}

// Disambiguate inserts a numeric suffix before the extension to resolve a
// filename collision.
func Disambiguate(name string, n int) string {
	base, ext := SplitExt(name)
	return base + strconv.Itoa(n) + ext
}
