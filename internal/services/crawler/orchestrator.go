// -----------------------------------------------------------------------
// Crawl Orchestrator - validates targets and runs crawls as worker containers
// -----------------------------------------------------------------------

package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/containers"
	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
	"github.com/ternarybob/scientia/internal/models"
)

const (
	// ManagedByLabel / ManagedByValue mark every container this process
	// launches; fleet operations select on them.
	ManagedByLabel = "managed-by"
	ManagedByValue = "mcp-crawler"

	// DomainLabel carries the crawled origin for observability.
	DomainLabel = "crawl-domain"
)

// workerCmd is the worker image invocation contract.
var workerCmd = []string{"ruby", "bin/crawler", "crawl", workerConfigPath}

// Orchestrator implements interfaces.CrawlOrchestrator on a container
// runtime and a web probe.
type Orchestrator struct {
	runtime         interfaces.ContainerRuntime
	probe           interfaces.WebProbe
	config          common.CrawlerConfig
	backendSettings map[string]interface{}
	logger          arbor.ILogger
}

func NewOrchestrator(runtime interfaces.ContainerRuntime, probe interfaces.WebProbe, config common.CrawlerConfig, backendSettings map[string]interface{}) *Orchestrator {
	return &Orchestrator{
		runtime:         runtime,
		probe:           probe,
		config:          config,
		backendSettings: backendSettings,
		logger:          common.GetLogger(),
	}
}

// ValidateCrawl derives the crawl parameters and pre-flights the seed page.
// Nofollow links never count toward the child limit.
func (o *Orchestrator) ValidateCrawl(ctx context.Context, seedURL string, maxChildLimit int) (*models.CrawlParams, error) {
	params, err := DeriveCrawlParams(seedURL)
	if err != nil {
		return nil, err
	}

	extraction, err := o.probe.ExtractURLs(ctx, seedURL, params.Domain, params.FilterPattern)
	if err != nil {
		return nil, err
	}

	if extraction.NoIndex && extraction.NoFollow {
		return nil, kberrors.Newf(kberrors.KindValidationNoIndexNofollow,
			"page at %s declares both noindex and nofollow", seedURL)
	}
	if len(extraction.URLsToCrawl) > maxChildLimit {
		return nil, kberrors.Newf(kberrors.KindValidationTooManyURLs,
			"page at %s links to %d crawlable URLs, above the limit of %d",
			seedURL, len(extraction.URLsToCrawl), maxChildLimit)
	}

	return params, nil
}

func (o *Orchestrator) CrawlDomain(ctx context.Context, params models.CrawlParams, backendID string, excludePaths []string) (string, error) {
	rendered, err := buildWorkerConfig(params, backendID, excludePaths, o.backendSettings)
	if err != nil {
		return "", kberrors.Wrap(kberrors.KindContainerStartFailed, "failed to build crawl config", err)
	}

	archive, err := containers.InjectFile{
		Path:    strings.TrimPrefix(workerConfigPath, "/"),
		Content: rendered,
	}.TarStream()
	if err != nil {
		return "", kberrors.Wrap(kberrors.KindContainerStartFailed, "failed to package crawl config", err)
	}

	name := fmt.Sprintf("%s-%s-%s", ManagedByValue, backendID, randomSuffix())
	containerID, err := o.runtime.Create(ctx, interfaces.ContainerSpec{
		Image: o.config.DockerImage,
		Name:  name,
		Cmd:   workerCmd,
		Labels: map[string]string{
			ManagedByLabel: ManagedByValue,
			DomainLabel:    params.Domain,
		},
		MemoryReservation: o.config.MemoryReservation,
	})
	if err != nil {
		return "", kberrors.Wrap(kberrors.KindContainerStartFailed,
			fmt.Sprintf("failed to create crawl container for %s", params.Domain), err)
	}

	if err := o.runtime.PutArchive(ctx, containerID, "/", archive); err != nil {
		o.cleanupFailedLaunch(ctx, containerID)
		return "", kberrors.Wrap(kberrors.KindContainerStartFailed,
			fmt.Sprintf("failed to inject crawl config into container %s", containerID), err)
	}

	if err := o.runtime.Start(ctx, containerID); err != nil {
		o.cleanupFailedLaunch(ctx, containerID)
		return "", kberrors.Wrap(kberrors.KindContainerStartFailed,
			fmt.Sprintf("failed to start crawl container %s", containerID), err)
	}

	o.logger.Info().
		Str("container_id", containerID).
		Str("domain", params.Domain).
		Str("backend_id", backendID).
		Msg("Crawl started")

	return containerID, nil
}

// cleanupFailedLaunch force-removes a half-created container. Best effort:
// the launch error is what the caller sees.
func (o *Orchestrator) cleanupFailedLaunch(ctx context.Context, containerID string) {
	if err := o.runtime.Remove(ctx, containerID, true); err != nil {
		o.logger.Warn().Err(err).Str("container_id", containerID).Msg("Failed to clean up crawl container")
	}
}

func (o *Orchestrator) PullImage(ctx context.Context) error {
	return o.runtime.Pull(ctx, o.config.DockerImage)
}

func (o *Orchestrator) ListCrawls(ctx context.Context) ([]models.CrawlJob, error) {
	infos, err := o.runtime.List(ctx, map[string]string{ManagedByLabel: ManagedByValue}, true)
	if err != nil {
		return nil, err
	}

	jobs := make([]models.CrawlJob, 0, len(infos))
	for _, info := range infos {
		jobs = append(jobs, models.CrawlJob{
			ID:     info.ID,
			Names:  info.Names,
			Image:  info.Image,
			State:  info.State,
			Status: info.Status,
			Labels: info.Labels,
		})
	}
	return jobs, nil
}

func (o *Orchestrator) GetCrawlLogs(ctx context.Context, containerID string) (string, error) {
	return o.runtime.Logs(ctx, containerID)
}

func (o *Orchestrator) StopCrawl(ctx context.Context, containerID string) error {
	return o.runtime.Remove(ctx, containerID, true)
}

// RemoveCompletedCrawls removes every exited managed container. Individual
// removal failures are logged and counted, not raised.
func (o *Orchestrator) RemoveCompletedCrawls(ctx context.Context) (*models.CleanupSummary, error) {
	infos, err := o.runtime.List(ctx, map[string]string{ManagedByLabel: ManagedByValue}, true)
	if err != nil {
		return nil, err
	}

	summary := &models.CleanupSummary{}
	for _, info := range infos {
		if info.State != "exited" {
			continue
		}
		summary.Total++
		if err := o.runtime.Remove(ctx, info.ID, false); err != nil {
			o.logger.Warn().Err(err).Str("container_id", info.ID).Msg("Failed to remove completed crawl")
			continue
		}
		summary.Removed++
	}
	return summary, nil
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
