package id

import (
	"crypto/rand"
	"strconv"
	"time"
)

const chars = "abcdefghijklmnopqrstuvwxyz0123456789"

// CompactID returns a short, time-ordered ID: the base36 millisecond
// timestamp followed by a 3-character random suffix.
// Session IDs use it because they are stored once per session in a
// size-limited store.
func CompactID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 36) + randomString(3)
}

func randomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	for i := range b {
		b[i] = chars[b[i]%byte(len(chars))]
	}
	return string(b)
}
