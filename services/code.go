package services

import (
	"fmt"
	"io"
)

const (
	RoomCodeLength = 6
	// 32 symbols, so a random byte modulo len is uniform.
	RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// newRoomCode draws a code over RoomCodeChars from entropy.
func newRoomCode(entropy io.Reader) (string, error) {
	buf := make([]byte, RoomCodeLength)
	if _, err := io.ReadFull(entropy, buf); err != nil {
		return "", fmt.Errorf("read room code entropy: %w", err)
	}
	for i, b := range buf {
		buf[i] = RoomCodeChars[int(b)%len(RoomCodeChars)]
	}
	return string(buf), nil
}

// ValidRoomCode accepts six characters of A-Z and 0-9. Codes typed by hand
// may use letters the generator avoids.
func ValidRoomCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
