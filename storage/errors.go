package storage

import "errors"

var (
	ErrNotFound          = errors.New("storage: not found")
	ErrInvalidVisibility = errors.New("storage: invalid visibility tier")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
