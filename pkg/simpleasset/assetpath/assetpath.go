// Package assetpath builds deterministic storage keys for assets.
//
// Every asset owns one prefix of the form yyyy/MM/dd/<id>/; the original
// bytes live at <prefix>original and derivatives under <prefix>variants/.
// Keys never depend on mutable metadata, so a stored prefix alone is enough
// to reconstruct every key the asset can own.
package assetpath

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	originalName   = "original"
	variantsFolder = "variants/"
)

// Path is an asset's storage prefix.
type Path struct {
	prefix string
}

// New allocates the path for a new asset, bucketed by the given time's UTC date.
func New(id uuid.UUID, t time.Time) Path {
	return Path{prefix: t.UTC().Format("2006/01/02") + "/" + id.String() + "/"}
}

// FromPrefix restores a Path from a stored prefix.
func FromPrefix(prefix string) Path {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return Path{prefix: prefix}
}

// Prefix returns the asset's storage prefix, always slash-terminated.
func (p Path) Prefix() string { return p.prefix }

// OriginalKey returns the key of the original bytes.
func (p Path) OriginalKey() string { return p.prefix + originalName }

// VariantKey returns the key for a named derivative with the given extension.
func (p Path) VariantKey(name, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return p.prefix + variantsFolder + name + "." + ext
}

// VariantsPrefix returns the prefix under which all derivatives live.
func (p Path) VariantsPrefix() string { return p.prefix + variantsFolder }
