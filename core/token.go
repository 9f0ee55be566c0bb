package core

import "strings"

const (
	// InviteCodeLength is the length of generated invite codes.
	InviteCodeLength = 8
	// PasswordLength is the length of generated room passwords.
	PasswordLength = 8

	base36Chars   = "0123456789abcdefghijklmnopqrstuvwxyz"
	passwordChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateInviteCode returns an upper-case base-36 invite code of InviteCodeLength characters.
func GenerateInviteCode(r Random) string {
	return strings.ToUpper(randomString(r, base36Chars, InviteCodeLength))
}

// GeneratePassword returns a room password drawn uniformly from the alphanumeric alphabet.
func GeneratePassword(r Random) string {
	return randomString(r, passwordChars, PasswordLength)
}

// IsValidInviteCode reports whether code is a non-blank alphanumeric token.
func IsValidInviteCode(code string) bool {
	if code == "" || len(code) > 32 {
		return false
	}
	for _, c := range code {
		if !isAlphanumeric(c) {
			return false
		}
	}
	return true
}

func randomString(r Random, alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[r.IntN(len(alphabet))]
	}
	return string(b)
}

func isAlphanumeric(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
