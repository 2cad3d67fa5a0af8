package boltstore

import "strings"

// Bucket name constants for bbolt storage.
var (
	bucketMeta  = []byte("meta")
	bucketUsers = []byte("users")
	bucketRooms = []byte("rooms")
	bucketItems = []byte("items")
	bucketBots  = []byte("bots")
)

// Meta key constants.
var (
	keyFormat   = []byte("format")
	keySavedAt  = []byte("savedat")
	keyWorldDir = []byte("worlddir")
)

// formatVersion is bumped when the gob record layout changes incompatibly.
const formatVersion = 1

// userKey returns the bucket key for a user record. User names are unique
// case-insensitively, so the key is always lowercased.
func userKey(name string) []byte {
	return []byte(strings.ToLower(name))
}
