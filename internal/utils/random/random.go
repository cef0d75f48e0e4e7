package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CharsetUpperAlphaNum is the charset for human-readable reference numbers.
const CharsetUpperAlphaNum = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// String generates a random string from the given charset.
func String(length int, charset string) (string, error) {
	if length <= 0 {
		return "", nil
	}
	if charset == "" {
		charset = CharsetUpperAlphaNum
	}

	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// BookingNo generates a booking reference like "BK-20260830-7XK2QF".
func BookingNo() string {
	suffix, _ := String(6, CharsetUpperAlphaNum)
	return fmt.Sprintf("BK-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
