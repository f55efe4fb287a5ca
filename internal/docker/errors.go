package docker

import "errors"

// ErrEngineUnavailable is returned when the Docker daemon cannot be reached.
var ErrEngineUnavailable = errors.New("docker engine unavailable")

// ErrNotFound is returned when a container does not exist.
var ErrNotFound = errors.New("sandbox not found")

// ErrImageNotFound is returned when an image does not exist locally.
var ErrImageNotFound = errors.New("image not found locally")
