package auth

import (
	"crypto/sha256"
	"crypto/subtle"
)

// APIKey is a named static key.
type APIKey struct {
	Name string
	Key  string
}

type storedKey struct {
	name   string
	digest [sha256.Size]byte
}

// KeySet matches presented API keys in constant time. Only digests are kept
// so the comparison does not leak key length.
type KeySet struct {
	keys []storedKey
}

// NewKeySet builds a KeySet. Empty keys are ignored.
func NewKeySet(keys []APIKey) *KeySet {
	ks := &KeySet{}
	for _, k := range keys {
		if k.Key == "" {
			continue
		}
		ks.keys = append(ks.keys, storedKey{name: k.Name, digest: sha256.Sum256([]byte(k.Key))})
	}
	return ks
}

// Len returns the number of configured keys.
func (ks *KeySet) Len() int {
	return len(ks.keys)
}

// Match returns the name of the key equal to presented. Every configured key
// is compared so timing does not depend on which one matched.
func (ks *KeySet) Match(presented string) (string, bool) {
	if presented == "" {
		return "", false
	}
	digest := sha256.Sum256([]byte(presented))
	matched := -1
	for i, k := range ks.keys {
		if subtle.ConstantTimeCompare(digest[:], k.digest[:]) == 1 && matched < 0 {
			matched = i
		}
	}
	if matched < 0 {
		return "", false
	}
	return ks.keys[matched].name, true
}
