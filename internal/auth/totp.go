package auth

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrSize = 200

// TOTPEnrollment is a freshly generated, not yet confirmed second factor.
type TOTPEnrollment struct {
	Secret string
	URL    string // otpauth:// URI
	QRCode string // data:image/png;base64 URI of URL
}

// GenerateTOTP creates a new secret for accountName.
func GenerateTOTP(issuer, accountName string) (*TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, err
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err = png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return &TOTPEnrollment{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// ValidateTOTP checks a six digit code, allowing one period of clock skew.
func ValidateTOTP(secret, code string, now time.Time) error {
	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    30, //nolint:mnd
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil || !ok {
		return ErrInvalidTOTP
	}

	return nil
}
