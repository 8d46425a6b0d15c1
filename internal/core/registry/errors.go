package registry

import "errors"

var (
	ErrNilSystem        = errors.New("system is nil")
	ErrSystemExists     = errors.New("system already registered")
	ErrSystemNotFound   = errors.New("system not found")
	ErrServiceExists    = errors.New("service already provided")
	ErrRegistryShutdown = errors.New("registry is shut down")
)
