//go:build !embedcache

package inkmatrix

var embeddedArtifact []byte
