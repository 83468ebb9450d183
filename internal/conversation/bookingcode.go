package conversation

import "math/rand/v2"

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

// NewBookingCode returns a short human-readable reference such as "NL-A742".
func NewBookingCode() string {
	b := []byte{
		codeLetters[rand.IntN(len(codeLetters))],
		codeLetters[rand.IntN(len(codeLetters))],
		'-',
		codeLetters[rand.IntN(len(codeLetters))],
		codeDigits[rand.IntN(len(codeDigits))],
		codeDigits[rand.IntN(len(codeDigits))],
		codeDigits[rand.IntN(len(codeDigits))],
	}
	return string(b)
}
