package auth

import "errors"

var (
	// ErrNoIDToken is returned when the OAuth2 token response doesn't contain an ID token.
	// This typically indicates a misconfigured OIDC provider or an incomplete authentication flow.
	ErrNoIDToken = errors.New("no id_token in token response")

	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidPassword is returned when the provided password is incorrect during authentication.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrUserNotFound is returned when a user cannot be found in the database or directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrMultipleUsersFound is returned when a query expected one user but found multiple.
	// This typically indicates a misconfigured LDAP filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")

	// ErrPasswordTooShort is returned when a new password is below MinPasswordLength.
	ErrPasswordTooShort = errors.New("password is too short")

	// ErrRegistrationDisabled is returned when self sign up is switched off.
	ErrRegistrationDisabled = errors.New("registration is disabled")

	// ErrInvalidTOTP is returned when a second factor code does not verify.
	ErrInvalidTOTP = errors.New("invalid verification code")

	// ErrInvalidToken is returned for API tokens that fail signature, issuer or expiry checks.
	ErrInvalidToken = errors.New("invalid token")
)
