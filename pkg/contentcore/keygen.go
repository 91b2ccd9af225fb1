package contentcore

import "crypto/rand"

// KeyGenerator produces privacy keys for private content. The service
// accepts a custom generator so tests can make keys deterministic.
type KeyGenerator func() (string, error)

const (
	privacyKeyLength  = 8
	privacyKeyCharset = "0123456789abcdefghijklmnopqrstuvwxyz"

	// Largest multiple of len(privacyKeyCharset) below 256. Bytes at or
	// above it are rejected so every character is equally likely.
	privacyKeyByteMax = 252
)

// randomPrivacyKey returns a uniformly random 8-character base36 key.
func randomPrivacyKey() (string, error) {
	key := make([]byte, 0, privacyKeyLength)
	buf := make([]byte, privacyKeyLength)
	for len(key) < privacyKeyLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= privacyKeyByteMax {
				continue
			}
			key = append(key, privacyKeyCharset[int(b)%len(privacyKeyCharset)])
			if len(key) == privacyKeyLength {
				break
			}
		}
	}
	return string(key), nil
}
