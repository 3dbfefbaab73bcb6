package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashUserKey returns a filesystem-safe identifier for a user ID. Stored
// objects are grouped under it so paths never reveal numeric ids.
func HashUserKey(userID int64) string {
	sum := sha256.Sum256([]byte("user:" + strconv.FormatInt(userID, 10)))
	return hex.EncodeToString(sum[:])
}
