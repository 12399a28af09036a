package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	sessionIDLength = 16
	sessionWindow   = time.Hour
)

// ClientSessionID derives a session id for a client that did not send one.
// The same ip and user agent map to the same id for one clock hour.
func ClientSessionID(ip, userAgent string) string {
	return clientSessionIDAt(ip, userAgent, time.Now())
}

func clientSessionIDAt(ip, userAgent string, now time.Time) string {
	bucket := now.Unix() / int64(sessionWindow/time.Second)
	sum := md5.Sum([]byte(ip + "|" + userAgent + "|" + strconv.FormatInt(bucket, 10)))
	return hex.EncodeToString(sum[:])[:sessionIDLength]
}

// NewSessionID returns a random session id.
func NewSessionID() string {
	buf := make([]byte, sessionIDLength/2)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%016x", uint64(time.Now().UnixNano()))
	}
	return hex.EncodeToString(buf)
}

// IsSessionID reports whether s has the shape of an id issued by this package.
func IsSessionID(s string) bool {
	if len(s) != sessionIDLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
