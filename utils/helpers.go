package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// GenerateRandomString generates a random hex string of specified length
func GenerateRandomString(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// NewEmployeeNo issues an identifier for the badge/camera hardware. The
// terminals only accept short alphanumeric IDs, so a trimmed UUID is used.
func NewEmployeeNo() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// UintKey renders an id for use in map keys and log fields
func UintKey(u uint) string {
	return strconv.FormatUint(uint64(u), 10)
}

// IsValidPaymentMethod checks a payment/expense method value
func IsValidPaymentMethod(method string) bool {
	switch method {
	case "cash", "card", "transfer":
		return true
	}
	return false
}

// IsValidStaffRole checks a back-office role value
func IsValidStaffRole(role string) bool {
	return role == "admin" || role == "staff"
}

// SanitizeString removes dangerous characters from string
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
