// Package thumbspec defines the fixed set of thumbnail outputs each media
// kind requires and checks whether those outputs already exist.
//
// Outputs live in a hidden directory next to the source file:
//
//	<dir>/@eaDir/<file name>/SYNOPHOTO_THUMB_XL.jpg
//	<dir>/@eaDir/<file name>/SYNOPHOTO_THUMB_L.jpg
//	...
//	<dir>/@eaDir/<file name>/SYNOPHOTO:FILM.flv   (videos only)
//
// An output set is complete when every expected file exists with a size
// greater than zero. Zero-byte files are left behind by interrupted writes
// and are treated as missing.
package thumbspec
