// -----------------------------------------------------------------------
// Docker Runtime - ContainerRuntime adapter over the Docker Engine API
// -----------------------------------------------------------------------

package containers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
)

// DockerRuntime implements interfaces.ContainerRuntime on the Docker SDK.
type DockerRuntime struct {
	client *client.Client
	logger arbor.ILogger
}

// NewDockerRuntime connects to the Docker daemon. An empty socket uses the
// environment defaults (DOCKER_HOST et al).
func NewDockerRuntime(socket string) (*DockerRuntime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if socket != "" {
		opts = append(opts, client.WithHost(socket))
	}

	dockerClient, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the container runtime: %w", err)
	}

	return &DockerRuntime{
		client: dockerClient,
		logger: common.GetLogger(),
	}, nil
}

func (r *DockerRuntime) Pull(ctx context.Context, imageRef string) error {
	reader, err := r.client.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}
	defer reader.Close()

	// The pull completes only once the progress stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}

	r.logger.Debug().Str("image", imageRef).Msg("Image pulled")
	return nil
}

func (r *DockerRuntime) Create(ctx context.Context, spec interfaces.ContainerSpec) (string, error) {
	config := &container.Config{
		Image:  spec.Image,
		Cmd:    spec.Cmd,
		Labels: spec.Labels,
	}
	hostConfig := &container.HostConfig{
		AutoRemove: false,
		Resources: container.Resources{
			MemoryReservation: spec.MemoryReservation,
		},
	}

	created, err := r.client.ContainerCreate(ctx, config, hostConfig, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", spec.Name, err)
	}
	return created.ID, nil
}

func (r *DockerRuntime) PutArchive(ctx context.Context, containerID string, path string, archive io.Reader) error {
	if err := r.client.CopyToContainer(ctx, containerID, path, archive, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("failed to copy archive into container %s: %w", containerID, err)
	}
	return nil
}

func (r *DockerRuntime) Start(ctx context.Context, containerID string) error {
	if err := r.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", containerID, err)
	}
	return nil
}

func (r *DockerRuntime) List(ctx context.Context, labels map[string]string, all bool) ([]interfaces.ContainerInfo, error) {
	filterArgs := filters.NewArgs()
	for key, value := range labels {
		filterArgs.Add("label", fmt.Sprintf("%s=%s", key, value))
	}

	containers, err := r.client.ContainerList(ctx, container.ListOptions{
		All:     all,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	infos := make([]interfaces.ContainerInfo, 0, len(containers))
	for _, c := range containers {
		names := make([]string, 0, len(c.Names))
		for _, name := range c.Names {
			names = append(names, strings.TrimPrefix(name, "/"))
		}
		infos = append(infos, interfaces.ContainerInfo{
			ID:     c.ID,
			Names:  names,
			Image:  c.Image,
			State:  c.State,
			Status: c.Status,
			Labels: c.Labels,
		})
	}
	return infos, nil
}

func (r *DockerRuntime) Logs(ctx context.Context, containerID string) (string, error) {
	reader, err := r.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", kberrors.Newf(kberrors.KindContainerNotFound, "container %s not found", containerID)
		}
		return "", fmt.Errorf("failed to read logs of container %s: %w", containerID, err)
	}
	defer reader.Close()

	// Docker multiplexes stdout and stderr into one stream.
	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, reader); err != nil {
		return "", fmt.Errorf("failed to demultiplex logs of container %s: %w", containerID, err)
	}

	stdout.Write(stderr.Bytes())
	return stdout.String(), nil
}

func (r *DockerRuntime) Remove(ctx context.Context, containerID string, force bool) error {
	err := r.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: force})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return kberrors.Newf(kberrors.KindContainerNotFound, "container %s not found", containerID)
		}
		return fmt.Errorf("failed to remove container %s: %w", containerID, err)
	}
	return nil
}

func (r *DockerRuntime) Close() error {
	return r.client.Close()
}
