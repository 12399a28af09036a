package utils

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// MD5Hash returns the hex md5 digest of input.
func MD5Hash(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// NormalizeQuery lower-cases a question and collapses its whitespace so that
// equivalent phrasings share cache keys.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// QueryKey returns the cache key for a question.
func QueryKey(query string) string {
	return MD5Hash(NormalizeQuery(query))
}
