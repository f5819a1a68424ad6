package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

func NowISO() string {
	return time.Now().Format(time.RFC3339)
}

// DigitsOnly drops every character outside 0-9.
func DigitsOnly(s string) string {
	b := strings.Builder{}
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ParseYesNo reads a typed yes/no answer. ok is false for anything else.
func ParseYesNo(s string) (yes bool, ok bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "yes", "y", "oo", "true", "1":
		return true, true
	case "no", "n", "hindi", "false", "0":
		return false, true
	default:
		return false, false
	}
}

func HMACSHA256Hex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256Hex compares sig against the expected MAC in constant time.
func VerifyHMACSHA256Hex(secret, msg, sig string) bool {
	expected := HMACSHA256Hex(secret, msg)
	return hmac.Equal([]byte(expected), []byte(sig))
}
