package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const ownerKeyLen = 32

// OwnerKey maps an owner id ("guest:<id>" or a user id) to a short hex token
// usable as a path segment in object storage.
func OwnerKey(ownerID string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(ownerID)))
	return hex.EncodeToString(sum[:])[:ownerKeyLen]
}
