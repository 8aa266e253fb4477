package crawler

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/interfaces"
	"github.com/ternarybob/scientia/internal/kberrors"
	"github.com/ternarybob/scientia/internal/models"
)

type runtimeStub struct {
	containers []interfaces.ContainerInfo

	created     []interfaces.ContainerSpec
	archives    map[string][]byte
	started     []string
	removed     []string
	forced      map[string]bool
	pulled      []string
	logs        string
	createErr   error
	startErr    error
	archiveErr  error
	removeFails map[string]bool
}

func newRuntimeStub() *runtimeStub {
	return &runtimeStub{
		archives:    make(map[string][]byte),
		forced:      make(map[string]bool),
		removeFails: make(map[string]bool),
	}
}

func (r *runtimeStub) Pull(_ context.Context, image string) error {
	r.pulled = append(r.pulled, image)
	return nil
}

func (r *runtimeStub) Create(_ context.Context, spec interfaces.ContainerSpec) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}
	r.created = append(r.created, spec)
	return "container-1", nil
}

func (r *runtimeStub) PutArchive(_ context.Context, containerID string, _ string, archive io.Reader) error {
	if r.archiveErr != nil {
		return r.archiveErr
	}
	data, _ := io.ReadAll(archive)
	r.archives[containerID] = data
	return nil
}

func (r *runtimeStub) Start(_ context.Context, containerID string) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.started = append(r.started, containerID)
	return nil
}

func (r *runtimeStub) List(_ context.Context, _ map[string]string, _ bool) ([]interfaces.ContainerInfo, error) {
	return r.containers, nil
}

func (r *runtimeStub) Logs(_ context.Context, _ string) (string, error) {
	return r.logs, nil
}

func (r *runtimeStub) Remove(_ context.Context, containerID string, force bool) error {
	if r.removeFails[containerID] {
		return errors.New("device busy")
	}
	r.removed = append(r.removed, containerID)
	r.forced[containerID] = force
	return nil
}

func (r *runtimeStub) Close() error { return nil }

type probeStub struct {
	result *interfaces.ExtractionResult
	err    error
}

func (p *probeStub) ExtractURLs(_ context.Context, _, _, _ string) (*interfaces.ExtractionResult, error) {
	return p.result, p.err
}

func newTestOrchestrator(runtime *runtimeStub, probe *probeStub) *Orchestrator {
	return NewOrchestrator(runtime, probe, common.CrawlerConfig{
		DockerImage:       "crawler:latest",
		MemoryReservation: 512 * 1024 * 1024,
	}, map[string]interface{}{
		"host":    "https://localhost:9200",
		"api_key": "key",
	})
}

func TestValidateCrawl(t *testing.T) {
	t.Run("passes and returns derived params", func(t *testing.T) {
		probe := &probeStub{result: &interfaces.ExtractionResult{
			URLsToCrawl: []string{"/a", "/b", "/c"},
			SkippedURLs: []string{"/d"},
		}}
		orchestrator := newTestOrchestrator(newRuntimeStub(), probe)

		params, err := orchestrator.ValidateCrawl(context.Background(), "https://ex.com/docs/", 3)
		require.NoError(t, err)
		assert.Equal(t, "https://ex.com", params.Domain)
		assert.Equal(t, "/docs/", params.FilterPattern)
	})

	t.Run("both robots directives reject", func(t *testing.T) {
		probe := &probeStub{result: &interfaces.ExtractionResult{NoIndex: true, NoFollow: true}}
		orchestrator := newTestOrchestrator(newRuntimeStub(), probe)

		_, err := orchestrator.ValidateCrawl(context.Background(), "https://ex.com/docs/", 500)
		assert.True(t, kberrors.IsKind(err, kberrors.KindValidationNoIndexNofollow))
		assert.Contains(t, err.Error(), "noindex")
		assert.Contains(t, err.Error(), "nofollow")
	})

	t.Run("single robots directive passes", func(t *testing.T) {
		probe := &probeStub{result: &interfaces.ExtractionResult{NoIndex: true}}
		orchestrator := newTestOrchestrator(newRuntimeStub(), probe)

		_, err := orchestrator.ValidateCrawl(context.Background(), "https://ex.com/docs/", 500)
		assert.NoError(t, err)
	})

	t.Run("child limit excludes nofollow links", func(t *testing.T) {
		probe := &probeStub{result: &interfaces.ExtractionResult{
			URLsToCrawl: []string{"/a", "/b", "/c"},
			SkippedURLs: []string{"/d", "/e", "/f", "/g"},
		}}
		orchestrator := newTestOrchestrator(newRuntimeStub(), probe)

		_, err := orchestrator.ValidateCrawl(context.Background(), "https://ex.com/docs/", 3)
		assert.NoError(t, err)

		_, err = orchestrator.ValidateCrawl(context.Background(), "https://ex.com/docs/", 2)
		assert.True(t, kberrors.IsKind(err, kberrors.KindValidationTooManyURLs))
	})

	t.Run("probe failure propagates", func(t *testing.T) {
		probe := &probeStub{err: kberrors.New(kberrors.KindValidationHTTP, "fetch failed")}
		orchestrator := newTestOrchestrator(newRuntimeStub(), probe)

		_, err := orchestrator.ValidateCrawl(context.Background(), "https://ex.com/docs/", 500)
		assert.True(t, kberrors.IsKind(err, kberrors.KindValidationHTTP))
	})
}

func TestCrawlDomain(t *testing.T) {
	params := models.CrawlParams{
		SeedURL:       "https://ex.com/docs/",
		Domain:        "https://ex.com",
		FilterPattern: "/docs/",
	}

	t.Run("launches a labelled worker with the config injected", func(t *testing.T) {
		runtime := newRuntimeStub()
		orchestrator := newTestOrchestrator(runtime, &probeStub{})

		containerID, err := orchestrator.CrawlDomain(context.Background(), params,
			"kbmcp-docs.ex_com.docs-abcd1234", []string{"/docs/old/"})
		require.NoError(t, err)
		assert.Equal(t, "container-1", containerID)

		require.Len(t, runtime.created, 1)
		spec := runtime.created[0]
		assert.Equal(t, "crawler:latest", spec.Image)
		assert.Equal(t, []string{"ruby", "bin/crawler", "crawl", "/config/crawl.yml"}, spec.Cmd)
		assert.Equal(t, "mcp-crawler", spec.Labels["managed-by"])
		assert.Equal(t, "https://ex.com", spec.Labels["crawl-domain"])
		assert.Equal(t, int64(512*1024*1024), spec.MemoryReservation)
		assert.Regexp(t, regexp.MustCompile(`^mcp-crawler-kbmcp-docs\.ex_com\.docs-abcd1234-[0-9a-f]{8}$`), spec.Name)

		assert.Equal(t, []string{"container-1"}, runtime.started)

		// The injected archive holds the rendered config at config/crawl.yml.
		reader := tar.NewReader(bytes.NewReader(runtime.archives["container-1"]))
		header, err := reader.Next()
		require.NoError(t, err)
		assert.Equal(t, "config/crawl.yml", header.Name)

		content, err := io.ReadAll(reader)
		require.NoError(t, err)

		var config map[string]interface{}
		require.NoError(t, yaml.Unmarshal(content, &config))
		assert.Equal(t, "elasticsearch", config["output_sink"])
		assert.Equal(t, "kbmcp-docs.ex_com.docs-abcd1234", config["output_index"])
		assert.Equal(t, "DEBUG", config["log_level"])

		domains := config["domains"].([]interface{})
		require.Len(t, domains, 1)
		domain := domains[0].(map[string]interface{})
		assert.Equal(t, "https://ex.com", domain["url"])
		assert.Equal(t, []interface{}{"https://ex.com/docs/"}, domain["seed_urls"])

		rules := domain["crawl_rules"].([]interface{})
		require.Len(t, rules, 3)
		assert.Equal(t, map[string]interface{}{"policy": "deny", "type": "begins", "pattern": "/docs/old/"}, rules[0])
		assert.Equal(t, map[string]interface{}{"policy": "allow", "type": "begins", "pattern": "/docs/"}, rules[1])
		assert.Equal(t, map[string]interface{}{"policy": "deny", "type": "regex", "pattern": ".*"}, rules[2])

		backend := config["elasticsearch"].(map[string]interface{})
		assert.Equal(t, "https://localhost:9200", backend["host"])
	})

	t.Run("start failure removes the half-created container", func(t *testing.T) {
		runtime := newRuntimeStub()
		runtime.startErr = errors.New("oom")
		orchestrator := newTestOrchestrator(runtime, &probeStub{})

		_, err := orchestrator.CrawlDomain(context.Background(), params, "kbmcp-x", nil)
		assert.True(t, kberrors.IsKind(err, kberrors.KindContainerStartFailed))
		assert.Equal(t, []string{"container-1"}, runtime.removed)
		assert.True(t, runtime.forced["container-1"])
	})

	t.Run("create failure needs no cleanup", func(t *testing.T) {
		runtime := newRuntimeStub()
		runtime.createErr = errors.New("image missing")
		orchestrator := newTestOrchestrator(runtime, &probeStub{})

		_, err := orchestrator.CrawlDomain(context.Background(), params, "kbmcp-x", nil)
		assert.True(t, kberrors.IsKind(err, kberrors.KindContainerStartFailed))
		assert.Empty(t, runtime.removed)
	})
}

func TestRemoveCompletedCrawls(t *testing.T) {
	runtime := newRuntimeStub()
	runtime.containers = []interfaces.ContainerInfo{
		{ID: "running-1", State: "running"},
		{ID: "exited-1", State: "exited"},
		{ID: "exited-2", State: "exited"},
		{ID: "exited-3", State: "exited"},
	}
	runtime.removeFails["exited-2"] = true
	orchestrator := newTestOrchestrator(runtime, &probeStub{})

	summary, err := orchestrator.RemoveCompletedCrawls(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Removed)
	assert.NotContains(t, runtime.removed, "running-1")
}

func TestListCrawls(t *testing.T) {
	runtime := newRuntimeStub()
	runtime.containers = []interfaces.ContainerInfo{
		{
			ID:     "c1",
			Names:  []string{"mcp-crawler-kbmcp-x-deadbeef"},
			Image:  "crawler:latest",
			State:  "running",
			Status: "Up 2 minutes",
			Labels: map[string]string{"managed-by": "mcp-crawler", "crawl-domain": "https://ex.com"},
		},
	}
	orchestrator := newTestOrchestrator(runtime, &probeStub{})

	jobs, err := orchestrator.ListCrawls(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "c1", jobs[0].ID)
	assert.Equal(t, "running", jobs[0].State)
	assert.Equal(t, "https://ex.com", jobs[0].Labels["crawl-domain"])
}

func TestPullImage(t *testing.T) {
	runtime := newRuntimeStub()
	orchestrator := newTestOrchestrator(runtime, &probeStub{})

	require.NoError(t, orchestrator.PullImage(context.Background()))
	assert.Equal(t, []string{"crawler:latest"}, runtime.pulled)
}
