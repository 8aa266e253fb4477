package crawler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scientia/internal/common"
	"github.com/ternarybob/scientia/internal/interfaces"
)

// Janitor periodically removes exited crawl containers. With an empty
// schedule it never runs.
type Janitor struct {
	orchestrator interfaces.CrawlOrchestrator
	schedule     string
	cron         *cron.Cron
	logger       arbor.ILogger
}

func NewJanitor(orchestrator interfaces.CrawlOrchestrator, schedule string) *Janitor {
	return &Janitor{
		orchestrator: orchestrator,
		schedule:     schedule,
		cron:         cron.New(),
		logger:       common.GetLogger(),
	}
}

func (j *Janitor) Start() error {
	if j.schedule == "" {
		return nil
	}

	_, err := j.cron.AddFunc(j.schedule, j.sweep)
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", j.schedule, err)
	}

	j.cron.Start()
	j.logger.Info().Str("schedule", j.schedule).Msg("Crawl cleanup scheduled")
	return nil
}

func (j *Janitor) Stop() {
	j.cron.Stop()
}

func (j *Janitor) sweep() {
	summary, err := j.orchestrator.RemoveCompletedCrawls(context.Background())
	if err != nil {
		j.logger.Warn().Err(err).Msg("Crawl cleanup sweep failed")
		return
	}
	if summary.Total > 0 {
		j.logger.Info().
			Int("removed", summary.Removed).
			Int("total", summary.Total).
			Msg("Crawl cleanup sweep completed")
	}
}
