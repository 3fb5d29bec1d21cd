// Package servoom decodes "pixel bean" animation containers — the binary
// format produced by a pixel-display cloud service — into a canonical
// in-memory animation value, and encodes that value back out as a lossless
// animated WebP or an animated GIF.
//
// Decode dispatches on a one-byte format tag to one of seven codecs, each
// combining some of AES-CBC decryption, LZO1X or Zstandard decompression,
// palette/bitstream reconstruction over hierarchical tile grids, and
// embedded JPEG/GIF/WebP extraction. The result is a [PixelBean]: an
// ordered sequence of same-sized RGB frames plus a per-frame delay.
package servoom
