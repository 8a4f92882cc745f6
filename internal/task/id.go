package task

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	minIDLength  = 4
	maxIDLength  = 12
	nonceSize    = 16 // 128 bits of entropy
	hexChunkSize = 4  // 16 bits per base36 chunk
)

// GenerateID derives a short base36 task ID from the name, creation time and
// a random nonce. The ID starts at minIDLength characters and grows until
// existsFn reports no collision.
//
// IDs are device-local: two devices never agree on an ID for the "same" task,
// which is why merge matches on (name, frequency) instead.
func GenerateID(name string, createdAt time.Time, existsFn func(string) bool) string {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}

	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte(createdAt.Format(time.RFC3339Nano)))
	h.Write(nonce)

	base36 := hexToBase36(hex.EncodeToString(h.Sum(nil)))

	for length := minIDLength; length <= maxIDLength && length <= len(base36); length++ {
		candidate := base36[:length]
		if !existsFn(candidate) {
			return candidate
		}
	}
	return base36[:min(maxIDLength, len(base36))]
}

func hexToBase36(hexStr string) string {
	var result strings.Builder
	for i := 0; i < len(hexStr); i += hexChunkSize {
		end := min(i+hexChunkSize, len(hexStr))
		val, _ := strconv.ParseUint(hexStr[i:end], 16, 64)
		result.WriteString(strconv.FormatUint(val, 36))
	}
	return result.String()
}
