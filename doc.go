/*
Package inkmatrix renders game frames on slow e-ink panels with blue-noise
ordered dithering. Each gray source pixel becomes a 4x4 block of black and
white pixels whose pattern is looked up in a table precomputed for every
(block, intensity) pair, so dithering a frame costs one table read per
source pixel.

The table is built from a noise texture by a Calculator, persisted as an
artifact by a Store and resolved at startup by a Loader. A Ditherer expands
frames through the table, and a Renderer paces the refresh loop between a
LatestFrame mailbox and a Display.

Building the binary with the embedcache tag compiles in the artifact that
go generate writes next to this file.
*/
package inkmatrix

//go:generate go run ./cmd/inkmatrix --quiet gen -o dither_cache.bin.zst
