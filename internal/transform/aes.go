// Package transform implements the three stateless byte-slice-to-byte-slice
// primitives the pixel-bean container formats compose: AES-CBC decryption,
// LZO1X-1 decompression and Zstandard decompression.
package transform

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

// containerKey and containerIV are the fixed 128-bit AES-CBC key and IV
// baked into the pixel-bean cloud client. They are container constants, not
// secrets the decoder derives or negotiates (spec.md §4.2, §6).
var (
	containerKey = []byte{
		0x61, 0x6e, 0x64, 0x72, 0x6f, 0x69, 0x64, 0x70,
		0x69, 0x78, 0x65, 0x6c, 0x62, 0x65, 0x61, 0x6e,
	}
	containerIV = []byte{
		0x70, 0x69, 0x78, 0x65, 0x6c, 0x62, 0x65, 0x61,
		0x6e, 0x69, 0x76, 0x31, 0x32, 0x33, 0x34, 0x35,
	}
)

// ErrNotBlockAligned means the ciphertext length is not a multiple of the
// AES block size (16 bytes).
var ErrNotBlockAligned = errors.New("transform: AES-CBC input not block-aligned")

// AESDecrypt decrypts ciphertext with the fixed container key/IV. No PKCS
// padding is stripped: plaintext length equals ciphertext length, since the
// downstream compressor (LZO or Zstd) encodes its own length.
func AESDecrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrNotBlockAligned
	}
	block, err := aes.NewCipher(containerKey)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, containerIV)
	mode.CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}
