package profile

import "errors"

// User input errors. Operations returning one of these leave the store unchanged.
var (
	ErrDuplicateProfile = errors.New("profile already exists")
	ErrLastProfile      = errors.New("cannot delete the last profile")
	ErrUnknownProfile   = errors.New("profile does not exist")
	ErrEmptyName        = errors.New("profile name is empty")
	ErrEmptyCombo       = errors.New("no key combination set")
	ErrUnknownBinding   = errors.New("key is not bound")
)
