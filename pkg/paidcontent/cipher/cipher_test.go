package cipher_test

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywalled/paid-content/pkg/paidcontent"
	"github.com/paywalled/paid-content/pkg/paidcontent/cipher"
)

func testSecret(t *testing.T) []byte {
	t.Helper()
	secret := make([]byte, cipher.KeySize)
	_, err := rand.Read(secret)
	require.NoError(t, err)
	return secret
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := testSecret(t)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("hello world")},
		{"exactly one block", bytes.Repeat([]byte("a"), 16)},
		{"multiple blocks", bytes.Repeat([]byte("paid content "), 100)},
		{"binary", []byte{0x00, 0xff, 0x10, 0x80, 0x7f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, iv, err := cipher.Encrypt(tt.plaintext, secret)
			require.NoError(t, err)
			assert.Len(t, iv, 16)
			assert.Equal(t, 0, len(ciphertext)%16)
			assert.NotEqual(t, tt.plaintext, ciphertext)

			decrypted, err := cipher.Decrypt(ciphertext, iv, secret)
			require.NoError(t, err)
			assert.Equal(t, tt.plaintext, decrypted)
		})
	}
}

func TestEncryptGeneratesFreshIVs(t *testing.T) {
	secret := testSecret(t)
	plaintext := []byte("same plaintext every time")

	seenIVs := make(map[string]bool)
	seenCiphertexts := make(map[string]bool)

	for i := 0; i < 50; i++ {
		ciphertext, iv, err := cipher.Encrypt(plaintext, secret)
		require.NoError(t, err)

		assert.False(t, seenIVs[string(iv)], "IV reuse across encrypt calls")
		assert.False(t, seenCiphertexts[string(ciphertext)], "identical ciphertext across encrypt calls")
		seenIVs[string(iv)] = true
		seenCiphertexts[string(ciphertext)] = true
	}
}

func TestEncryptRejectsBadKeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 24, 31, 33} {
		_, _, err := cipher.Encrypt([]byte("data"), make([]byte, n))
		require.Error(t, err)

		var cryptoErr *paidcontent.CryptoError
		assert.ErrorAs(t, err, &cryptoErr)
	}
}

func TestDecryptRejectsBadInput(t *testing.T) {
	secret := testSecret(t)
	ciphertext, iv, err := cipher.Encrypt([]byte("hello"), secret)
	require.NoError(t, err)

	var cryptoErr *paidcontent.CryptoError

	t.Run("bad key length", func(t *testing.T) {
		_, err := cipher.Decrypt(ciphertext, iv, make([]byte, 16))
		assert.ErrorAs(t, err, &cryptoErr)
	})

	t.Run("empty ciphertext", func(t *testing.T) {
		_, err := cipher.Decrypt(nil, iv, secret)
		assert.ErrorAs(t, err, &cryptoErr)
	})

	t.Run("misaligned ciphertext", func(t *testing.T) {
		_, err := cipher.Decrypt(ciphertext[:len(ciphertext)-1], iv, secret)
		assert.ErrorAs(t, err, &cryptoErr)
	})

	t.Run("bad iv length", func(t *testing.T) {
		_, err := cipher.Decrypt(ciphertext, iv[:8], secret)
		assert.ErrorAs(t, err, &cryptoErr)
	})
}

// TestDecryptRejectsInvalidPadding builds a block whose final padding byte
// is zero, which no PKCS#7 encoder produces, so the failure is deterministic.
func TestDecryptRejectsInvalidPadding(t *testing.T) {
	secret := testSecret(t)

	block, err := aes.NewCipher(secret)
	require.NoError(t, err)

	iv := make([]byte, aes.BlockSize)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	badPlain := bytes.Repeat([]byte{0x00}, aes.BlockSize)
	badCipher := make([]byte, aes.BlockSize)
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(badCipher, badPlain)

	_, err = cipher.Decrypt(badCipher, iv, secret)
	require.Error(t, err)

	var cryptoErr *paidcontent.CryptoError
	assert.ErrorAs(t, err, &cryptoErr)
}

func TestCryptoErrorNeverMentionsKey(t *testing.T) {
	secret := testSecret(t)
	_, err := cipher.Decrypt([]byte("odd"), nil, secret)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), string(secret))
	assert.Contains(t, err.Error(), "ciphertext=3 bytes")
}
