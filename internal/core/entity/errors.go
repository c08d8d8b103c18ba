package entity

import "errors"

var (
	ErrMissingDependency = errors.New("required system is not registered")
	ErrNoSystems         = errors.New("no systems registered")
)
