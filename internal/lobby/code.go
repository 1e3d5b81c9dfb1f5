// internal/lobby/code.go
package lobby

import (
	"math/rand/v2"
	"strings"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength is the number of characters in a room code.
	CodeLength = 4
	// maxCodeAttempts bounds the retry-on-collision loop in CreateRoom.
	maxCodeAttempts = 32
)

// NormalizeCode uppercases and trims a user-entered room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code is CodeLength characters from the code alphabet.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// generateCode draws CodeLength characters uniformly with intN.
func generateCode(intN func(int) int) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[intN(len(codeAlphabet))])
	}
	return b.String()
}

func defaultIntN(n int) int {
	return rand.IntN(n)
}
