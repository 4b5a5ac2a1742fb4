package rebound

import "errors"

var (
	// ErrPolicyNotFound is returned when operating on an unregistered policy.
	ErrPolicyNotFound = errors.New("rebound: policy not found")

	// ErrCircuitOpen is returned when the circuit breaker rejects an attempt.
	ErrCircuitOpen = errors.New("rebound: circuit open")

	// ErrShutdown is returned when operating on a shut-down Rebound instance.
	ErrShutdown = errors.New("rebound: instance has been shut down")

	// ErrInvalidConfig is returned by LoadConfig for an unusable configuration.
	ErrInvalidConfig = errors.New("rebound: invalid configuration")
)
