package services

import "errors"

var (
	ErrNotificationFailed  = errors.New("task notification failed")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
