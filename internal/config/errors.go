package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnsupportedEngine error if db.gormEngine is not mysql, postgres or sqlite.
	ErrUnsupportedEngine = errors.New("toml config db.gormEngine is not supported")

	// ErrUnsupportedSessionBackend error if webserver.session.backend is unknown.
	ErrUnsupportedSessionBackend = errors.New("toml config webserver.session.backend is not supported")

	// ErrJWTSecretEmpty error if the api is enabled without a signing secret.
	ErrJWTSecretEmpty = errors.New("toml config api.jwtSecret can not be empty when the api is enabled")

	// ErrUnknownRole error if a role mapping points to a role that does not exist.
	ErrUnknownRole = errors.New("toml config role mapping references an unknown role")
)
