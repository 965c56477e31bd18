// Package cipher provides the symmetric content cipher: AES-256 in CBC mode
// with PKCS#7 padding and a fresh random IV per encryption.
package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"errors"

	"github.com/paywalled/paid-content/pkg/paidcontent"
)

// KeySize is the required secret length in bytes (AES-256).
const KeySize = 32

var (
	errKeySize    = errors.New("secret must be 32 bytes")
	errBlockAlign = errors.New("ciphertext length is not a multiple of the block size")
	errPadding    = errors.New("invalid padding")
	errEmpty      = errors.New("ciphertext is empty")
)

// Encrypt encrypts plaintext with the given 32-byte secret and returns the
// ciphertext together with the freshly generated 16-byte IV. The IV is drawn
// independently at random for every call; reusing an IV with the same key is
// a correctness violation and must never happen.
func Encrypt(plaintext, secret []byte) (ciphertext, iv []byte, err error) {
	if len(secret) != KeySize {
		return nil, nil, &paidcontent.CryptoError{Op: "encrypt", Err: errKeySize}
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, nil, &paidcontent.CryptoError{Op: "encrypt", Err: err}
	}

	iv = make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, &paidcontent.CryptoError{Op: "encrypt", IVLen: len(iv), Err: err}
	}

	padded := pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return ciphertext, iv, nil
}

// Decrypt reverses Encrypt. It fails with a CryptoError if the key length is
// wrong, the ciphertext is not block-aligned, or padding validation fails
// after decryption.
func Decrypt(ciphertext, iv, secret []byte) ([]byte, error) {
	if len(secret) != KeySize {
		return nil, &paidcontent.CryptoError{Op: "decrypt", CiphertextLen: len(ciphertext), IVLen: len(iv), Err: errKeySize}
	}
	if len(ciphertext) == 0 {
		return nil, &paidcontent.CryptoError{Op: "decrypt", IVLen: len(iv), Err: errEmpty}
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, &paidcontent.CryptoError{Op: "decrypt", CiphertextLen: len(ciphertext), IVLen: len(iv), Err: errBlockAlign}
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return nil, &paidcontent.CryptoError{Op: "decrypt", CiphertextLen: len(ciphertext), IVLen: len(iv), Err: err}
	}
	if len(iv) != aes.BlockSize {
		return nil, &paidcontent.CryptoError{Op: "decrypt", CiphertextLen: len(ciphertext), IVLen: len(iv), Err: errors.New("iv must be 16 bytes")}
	}

	plaintext := make([]byte, len(ciphertext))
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, &paidcontent.CryptoError{Op: "decrypt", CiphertextLen: len(ciphertext), IVLen: len(iv), Err: err}
	}
	return unpadded, nil
}

// AESCBC implements the paidcontent.ContentCipher contract.
type AESCBC struct{}

// New returns the AES-256-CBC content cipher.
func New() AESCBC { return AESCBC{} }

func (AESCBC) Encrypt(plaintext, secret []byte) (ciphertext, iv []byte, err error) {
	return Encrypt(plaintext, secret)
}

func (AESCBC) Decrypt(ciphertext, iv, secret []byte) ([]byte, error) {
	return Decrypt(ciphertext, iv, secret)
}

// pad applies PKCS#7 padding. Input of a whole number of blocks gets one
// full padding block, so unpad is always unambiguous.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errPadding
		}
	}
	return data[:len(data)-n], nil
}
