package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// OTPLength is the length of the OTP code
	OTPLength = 6

	// TempPasswordLength is the length of issued temporary passwords
	TempPasswordLength = 10

	tempPasswordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"
)

// GenerateOTP generates a cryptographically secure random 6-digit OTP
// in the range 100000-999999
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// GenerateTempPassword generates a random temporary password from an
// alphanumeric+symbol alphabet. The plaintext is only ever transmitted
// in the approval email.
func GenerateTempPassword() (string, error) {
	password := make([]byte, TempPasswordLength)
	charsetLen := big.NewInt(int64(len(tempPasswordCharset)))
	for i := range password {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate temporary password: %w", err)
		}
		password[i] = tempPasswordCharset[n.Int64()]
	}
	return string(password), nil
}
