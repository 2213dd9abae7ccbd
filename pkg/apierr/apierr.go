// Package apierr defines the control plane's error-kind sentinels.
// Components wrap one of these with fmt.Errorf("...: %w", ...) at
// the point of failure; the HTTP surface unwraps with errors.Is to
// pick a status code, per §7.
package apierr

import "errors"

var (
	// ErrNotFound means the requested entity id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means the caller-supplied value failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoCapacity means the scheduler found no node that fits the pod.
	ErrNoCapacity = errors.New("no capacity")
	// ErrRuntimeFailure means the container runtime driver refused an operation.
	ErrRuntimeFailure = errors.New("runtime failure")
	// ErrStoreFailure means the state store returned an unexpected error.
	ErrStoreFailure = errors.New("store failure")
)
