//go:build embedcache

package inkmatrix

import _ "embed"

// embeddedArtifact is the compressed cache for the default grid and
// brightening, produced by go generate.
//
//go:embed dither_cache.bin.zst
var embeddedArtifact []byte
