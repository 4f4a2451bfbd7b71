package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"dispatch/internal/core/domain/model/kernel"
)

// OTPGenerator returns a fresh kernel.OTPLength digit code.
type OTPGenerator func() (string, error)

var otpUpperBound = big.NewInt(1_000_000)

// RandomOTP draws a uniformly distributed 6-digit code, leading zeros kept.
func RandomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpUpperBound)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", kernel.OTPLength, n.Int64()), nil
}
