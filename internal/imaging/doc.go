// Package imaging reads image files for the analyzers: structural decoding,
// header metadata (dimensions and color mode), EXIF orientation, and the
// 64-bit difference hash used for perceptual duplicate detection.
//
// PNG, JPEG, GIF, WebP, BMP and TIFF are supported. Every function reads
// through a billy.Filesystem so analyzers can run against in-memory trees
// in tests. Color modes use the conventional short names ("L", "RGB",
// "RGBA", "P", ...) that dataset tooling reports.
package imaging
