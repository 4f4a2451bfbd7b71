package kernel

import (
	"encoding/json"
	"time"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

// OTPLength is the number of decimal digits in a delivery OTP.
const OTPLength = 6

// OTP verification failures. Each one is distinguishable with errors.Is.
var (
	ErrOTPIsNotConstructed = errs.NewValueIsRequiredError("otp must be created via NewOTP")
	ErrInvalidOTP          = errs.NewValueIsInvalidError("InvalidCode")
	ErrOTPExpired          = errs.NewExpiredError("Expired")
	ErrOTPAlreadyUsed      = errs.NewConflictError("otp", "AlreadyUsed")
)

// OTP is the single-use delivery code handed to the customer at assignment.
type OTP struct { //nolint:recvcheck //using for validation
	code       string
	expiresAt  time.Time
	verified   bool
	verifiedAt *time.Time
	guard      guard.ConstructorGuard
}

// NewOTP creates an unverified OTP.
//
// Parameters:
//   - code: OTPLength decimal digits
//   - expiresAt: last instant the code is accepted
func NewOTP(code string, expiresAt time.Time) (OTP, error) {
	if !isDigits(code, OTPLength) {
		return OTP{}, errs.NewValueIsInvalidError("otp code must be 6 digits")
	}
	if expiresAt.IsZero() {
		return OTP{}, errs.NewValueIsRequiredError("otp expiresAt")
	}

	return OTP{code: code, expiresAt: expiresAt, guard: guard.NewConstructorGuard()}, nil
}

// RestoreOTP rebuilds a persisted OTP, verified or not.
func RestoreOTP(code string, expiresAt time.Time, verified bool, verifiedAt *time.Time) (OTP, error) {
	otp, err := NewOTP(code, expiresAt)
	if err != nil {
		return OTP{}, err
	}
	otp.verified = verified
	if verifiedAt != nil {
		at := *verifiedAt
		otp.verifiedAt = &at
	}
	return otp, nil
}

// Validate reports whether the OTP was built by NewOTP.
func (o OTP) Validate() error {
	return o.guard.Validate(ErrOTPIsNotConstructed)
}

// Code returns the digits.
func (o OTP) Code() string { return o.code }

// ExpiresAt returns the expiry instant.
func (o OTP) ExpiresAt() time.Time { return o.expiresAt }

// Verified reports whether the code was already used.
func (o OTP) Verified() bool { return o.verified }

// VerifiedAt returns when the code was used, nil if unused.
func (o OTP) VerifiedAt() *time.Time {
	if o.verifiedAt == nil {
		return nil
	}
	at := *o.verifiedAt
	return &at
}

// Verify checks submitted against the stored code and returns the verified OTP.
//
// Failures, in order of precedence:
//   - ErrOTPAlreadyUsed once the code was accepted, whatever is submitted
//   - ErrInvalidOTP on mismatch
//   - ErrOTPExpired when now is after expiresAt
func (o OTP) Verify(submitted string, now time.Time) (OTP, error) {
	if err := o.Validate(); err != nil {
		return o, err
	}
	if o.verified {
		return o, ErrOTPAlreadyUsed
	}
	if submitted != o.code {
		return o, ErrInvalidOTP
	}
	if now.After(o.expiresAt) {
		return o, ErrOTPExpired
	}

	o.verified = true
	o.verifiedAt = &now
	return o, nil
}

type otpJSON struct {
	Code       string     `json:"code"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Verified   bool       `json:"verified"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
}

// MarshalJSON encodes the OTP for persistence.
func (o OTP) MarshalJSON() ([]byte, error) {
	return json.Marshal(otpJSON{Code: o.code, ExpiresAt: o.expiresAt, Verified: o.verified, VerifiedAt: o.verifiedAt})
}

// UnmarshalJSON decodes a persisted OTP through RestoreOTP.
func (o *OTP) UnmarshalJSON(data []byte) error {
	var raw otpJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	otp, err := RestoreOTP(raw.Code, raw.ExpiresAt, raw.Verified, raw.VerifiedAt)
	if err != nil {
		return err
	}
	*o = otp
	return nil
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
