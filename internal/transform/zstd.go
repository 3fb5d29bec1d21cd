package transform

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// DecompressZstd decompresses a standard RFC 8478 Zstandard stream,
// including multi-frame concatenation (klauspost/compress/zstd handles
// this natively via DecodeAll, which loops over concatenated frames).
func DecompressZstd(src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	out, err := dec.DecodeAll(src, nil)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}
