// Package uniuri generates random strings from crypto/rand, used for one-time
// passwords handed out by the CLI and the first start seed.
package uniuri

import (
	"crypto/rand"
)

// PasswordLen is the length of generated passwords, about 95 bits of entropy.
const PasswordLen = 16

// PasswordChars excludes characters that are easily confused when read aloud.
var PasswordChars = []byte("ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789")

// NewPassword returns a random password of PasswordLen characters.
func NewPassword() string {
	return NewLenChars(PasswordLen, PasswordChars)
}

// NewLenChars returns a random string of length characters from chars.
// Bytes that would bias the distribution are rejected. It panics if chars
// is empty or longer than 256 characters, or if crypto/rand fails.
func NewLenChars(length int, chars []byte) string {
	if length <= 0 {
		return ""
	}

	n := len(chars)
	if n == 0 || n > 256 {
		panic("uniuri: invalid character set length")
	}

	// largest multiple of n that fits into a byte
	limit := 256 - (256 % n)

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/2)

	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: reading random bytes: " + err.Error())
		}

		for _, b := range buf {
			if int(b) >= limit {
				continue
			}

			out = append(out, chars[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}

	return string(out)
}
