// Package container defines the wire-format constants the mux package needs
// to assemble and parse a WebP RIFF container: FourCC values, chunk sizes,
// and the one VP8L signature byte used to tell a lossless bitstream apart
// from a lossy one. Pixel-bean output is always VP8L, so the lossy VP8
// bitstream constants (partition sizes, intra-prediction modes, probability
// tables) the teacher carried for its decoder have no caller here and are
// dropped rather than kept as dead weight.
package container

// FourCC creates a FourCC value from four bytes (little-endian).
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

// Container FourCC values.
var (
	FourCCRIFF = FourCC('R', 'I', 'F', 'F')
	FourCCWEBP = FourCC('W', 'E', 'B', 'P')
	FourCCVP8  = FourCC('V', 'P', '8', ' ')
	FourCCVP8L = FourCC('V', 'P', '8', 'L')
	FourCCVP8X = FourCC('V', 'P', '8', 'X')
	FourCCANIM = FourCC('A', 'N', 'I', 'M')
	FourCCANMF = FourCC('A', 'N', 'M', 'F')
)

// VP8LMagicByte is the first byte of every VP8L lossless bitstream.
const VP8LMagicByte = 0x2f

// Container structure sizes.
const (
	ChunkHeaderSize = 8  // Size of a chunk header
	RIFFHeaderSize  = 12 // Size of the RIFF header ("RIFFnnnnWEBP")
	ANMFChunkSize   = 16 // Size of an ANMF chunk
	ANIMChunkSize   = 6  // Size of an ANIM chunk
	VP8XChunkSize   = 10 // Size of a VP8X chunk
)

// MaxChunkPayload bounds a single chunk's declared payload size so a
// corrupt length field can't be read as a huge allocation request.
const MaxChunkPayload = ^uint32(0) - ChunkHeaderSize - 1
