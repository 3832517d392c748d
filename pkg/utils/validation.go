package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt" // Import bcrypt for password hashing
)

// PasswordCost is the bcrypt cost used for stored credentials.
const PasswordCost = 10

var (
	emailRegex        = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	upperRegex        = regexp.MustCompile(`[A-Z]`)
	lowerRegex        = regexp.MustCompile(`[a-z]`)
	digitRegex        = regexp.MustCompile(`[0-9]`)
	specialRegex      = regexp.MustCompile(`[!@#$%^&*]`)
	passwordCharRegex = regexp.MustCompile(`^[A-Za-z0-9!@#$%^&*]+$`)
)

// IsValidEmail checks if the provided string is a valid email address.
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsStrongPassword checks 8 to 20 characters with upper, lower, digit and special characters.
func IsStrongPassword(password string) bool {
	if len(password) < 8 || len(password) > 20 {
		return false
	}
	if !passwordCharRegex.MatchString(password) {
		return false
	}
	return upperRegex.MatchString(password) &&
		lowerRegex.MatchString(password) &&
		digitRegex.MatchString(password) &&
		specialRegex.MatchString(password)
}

// IsValidNickname accepts 1 to 10 characters without whitespace.
func IsValidNickname(nickname string) bool {
	n := utf8.RuneCountInString(nickname)
	if n == 0 || n > 10 {
		return false
	}
	return !strings.ContainsAny(nickname, " \t\r\n")
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPasswordHash compares a plaintext password with a hashed password.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
