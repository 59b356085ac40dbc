package crumbs

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1" //nolint:gosec // Chromium's PBKDF2 scheme is fixed to ("saltysalt", sha1).
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

// Encrypted value wire format, shared by every Chromium-family browser:
//
//	[3-byte version marker "v10"|"v11"][12-byte nonce][ciphertext][16-byte tag]
//
// On Windows the payload is AES-256-GCM under a DPAPI-wrapped master key; on
// macOS and Linux it is AES-128-CBC under a PBKDF2-derived key. Values with
// no version marker predate either scheme.
const (
	chromiumVersionLen  = 3
	chromiumGCMNonceLen = 12
	chromiumGCMTagLen   = 16
)

const (
	chromiumCBCSalt            = "saltysalt"
	chromiumCBCIV              = "                " // 16 spaces
	chromiumCBCIterationsLinux = 1
	chromiumCBCIterationsMacOS = 1003
	chromiumCBCKeyLen          = 16
)

func chromiumDeriveCBCKey(password string, iterations int) []byte {
	return pbkdf2.Key([]byte(password), []byte(chromiumCBCSalt), iterations, chromiumCBCKeyLen, sha1.New)
}

// chromiumDecryptGCM opens a "v10"/"v11" AES-256-GCM value with the unwrapped
// master key. Authentication failure, a short buffer, or a missing marker all
// fail that single value; callers skip the row and keep going.
func chromiumDecryptGCM(encrypted []byte, key []byte, metaVersion int64) ([]byte, error) {
	if len(encrypted) < chromiumVersionLen+chromiumGCMNonceLen+chromiumGCMTagLen {
		return nil, errors.New("encrypted value too short")
	}
	if !chromiumGCMVersionPrefix(encrypted) {
		return nil, errors.New("missing v10/v11 prefix")
	}

	payload := encrypted[chromiumVersionLen:]
	nonce := payload[:chromiumGCMNonceLen]
	ciphertextAndTag := payload[chromiumGCMNonceLen:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	plain, err := aesgcm.Open(nil, nonce, ciphertextAndTag, nil)
	if err != nil {
		return nil, err
	}
	return chromiumStripHashPrefix(plain, metaVersion), nil
}

// chromiumDecryptCBC opens a "v10"/"v11" AES-128-CBC value (macOS/Linux
// scheme). With treatUnknownPrefixAsPlaintext set, unmarked values are copied
// through unchanged; macOS stores pre-encryption cookies that way.
func chromiumDecryptCBC(encrypted []byte, key []byte, metaVersion int64, treatUnknownPrefixAsPlaintext bool) ([]byte, error) {
	if len(encrypted) == 0 {
		return nil, errors.New("empty encrypted value")
	}
	if len(encrypted) <= chromiumVersionLen {
		return nil, fmt.Errorf("encrypted value too short (%d<=3)", len(encrypted))
	}

	if !chromiumVersionPrefix(encrypted) {
		if !treatUnknownPrefixAsPlaintext {
			return nil, errors.New("missing v## prefix")
		}
		return bytes.Clone(encrypted), nil
	}

	ciphertext := encrypted[chromiumVersionLen:]
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.New("cipher input not full blocks")
	}

	out := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, []byte(chromiumCBCIV))
	cbc.CryptBlocks(out, ciphertext)

	out, err = removePKCS7Padding(out)
	if err != nil {
		return nil, err
	}
	return chromiumStripHashPrefix(out, metaVersion), nil
}

// chromiumStripHashPrefix drops the leading SHA-256(host_key) that stores
// with meta version >= 24 prepend to every plaintext.
func chromiumStripHashPrefix(plain []byte, metaVersion int64) []byte {
	if metaVersion >= 24 && len(plain) >= 32 {
		return plain[32:]
	}
	return plain
}

// chromiumVersionPrefix reports whether b starts with any "v##" marker.
func chromiumVersionPrefix(b []byte) bool {
	if len(b) < chromiumVersionLen {
		return false
	}
	return b[0] == 'v' && isDigit(b[1]) && isDigit(b[2])
}

// chromiumGCMVersionPrefix reports whether b starts with "v10" or "v11",
// the two markers carried by AES-GCM values. Later markers ("v20" app-bound
// encryption) are recognized elsewhere and skipped.
func chromiumGCMVersionPrefix(b []byte) bool {
	if len(b) < chromiumVersionLen {
		return false
	}
	prefix := string(b[:chromiumVersionLen])
	return prefix == "v10" || prefix == "v11"
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func removePKCS7Padding(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return b, nil
	}
	paddingLen := int(b[len(b)-1])
	if paddingLen <= 0 || paddingLen > aes.BlockSize || paddingLen > len(b) {
		return nil, fmt.Errorf("invalid padding length: %d", paddingLen)
	}
	for _, p := range b[len(b)-paddingLen:] {
		if int(p) != paddingLen {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return b[:len(b)-paddingLen], nil
}

// chromiumDecodeValue turns decrypted bytes into the cookie's text value:
// leading control bytes and trailing NUL padding are stripped, and anything
// that still isn't valid UTF-8 is rejected.
func chromiumDecodeValue(b []byte) (string, bool) {
	i := 0
	for i < len(b) && b[i] < 0x20 {
		i++
	}
	b = b[i:]
	for len(b) > 0 && b[len(b)-1] == 0x00 {
		b = b[:len(b)-1]
	}
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}
