package interfaces

import (
	"context"
	"io"
)

// ContainerSpec describes a container to create. AutoRemove is always off so
// exited workers stay listable until cleanup.
type ContainerSpec struct {
	Image             string
	Name              string
	Cmd               []string
	Labels            map[string]string
	MemoryReservation int64
}

// ContainerInfo is the identification and state of one container.
type ContainerInfo struct {
	ID     string
	Names  []string
	Image  string
	State  string
	Status string
	Labels map[string]string
}

// ContainerRuntime is the container runtime consumer contract. Operations on
// distinct containers commute; the runtime serializes operations on the same
// container.
type ContainerRuntime interface {
	// Pull fetches an image from its registry.
	Pull(ctx context.Context, image string) error

	// Create creates a container and returns its id without starting it.
	Create(ctx context.Context, spec ContainerSpec) (string, error)

	// PutArchive extracts a tar stream into the container at path.
	PutArchive(ctx context.Context, containerID string, path string, archive io.Reader) error

	// Start starts a created container.
	Start(ctx context.Context, containerID string) error

	// List enumerates containers carrying all the given labels; all includes
	// stopped containers.
	List(ctx context.Context, labels map[string]string, all bool) ([]ContainerInfo, error)

	// Logs collects the combined stdout+stderr stream of a container.
	Logs(ctx context.Context, containerID string) (string, error)

	// Remove deletes a container, optionally force-killing it first.
	Remove(ctx context.Context, containerID string, force bool) error

	// Close releases the runtime connection.
	Close() error
}
