package scene

import "errors"

var (
	// Identity

	ErrIDOverflow = errors.New("game object id counter overflowed")

	// Components

	ErrNilComponent      = errors.New("component is nil")
	ErrComponentAttached = errors.New("component is already attached to a game object")
	ErrTransformRemoval  = errors.New("transform cannot be removed from its game object")

	// Hierarchy

	ErrHierarchyCycle = errors.New("parent is the transform itself or one of its descendants")

	// Lifecycle

	ErrDestroyed         = errors.New("game object is destroyed")
	ErrAlreadyDestroyed  = errors.New("game object destruction already committed")
	ErrDestroyInProgress = errors.New("game object destruction is being committed")
	ErrUnexpectedPayload = errors.New("lifecycle event carries no game object")
)
