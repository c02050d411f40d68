// Package enrich fills in missing link metadata in the background.
//
// Saving a link must not wait on a slow website, so the link service only
// enqueues the link's ID. A fixed number of workers pick IDs off a bounded
// queue, fetch the page and write back whatever the user left empty. Links
// saved while no pool was running are picked up again on Start.
package enrich

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/linkstash/internal/apperror"
	"github.com/sakif/linkstash/internal/metadata"
	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
)

const (
	DefaultWorkers    = 2
	DefaultQueueSize  = 100
	DefaultJobTimeout = 30 * time.Second
)

// Fetcher extracts metadata from a URL. *metadata.HTTPFetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (metadata.Metadata, error)
}

// LinkStore is the part of the link repository the pool needs.
type LinkStore interface {
	GetByID(ctx context.Context, id string) (*model.Link, error)
	FillMetadata(ctx context.Context, id string, meta repository.LinkMetadata, now time.Time) (bool, error)
	ListUnenriched(ctx context.Context, limit int) ([]string, error)
}

type Config struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	return c
}

// Pool is a fixed set of workers reading link IDs from a buffered channel.
type Pool struct {
	links   LinkStore
	fetcher Fetcher
	config  Config
	logger  *slog.Logger

	jobs chan string
	wg   sync.WaitGroup

	startOnce sync.Once
	mu        sync.RWMutex // guards stopped and sends on jobs
	stopped   bool
}

func NewPool(links LinkStore, fetcher Fetcher, cfg Config, logger *slog.Logger) *Pool {
	cfg = cfg.withDefaults()
	return &Pool{
		links:   links,
		fetcher: fetcher,
		config:  cfg,
		logger:  logger,
		jobs:    make(chan string, cfg.QueueSize),
	}
}

// Start launches the workers and queues the links left unenriched since
// the last run. Calling it again does nothing.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting enrichment workers",
			slog.Int("workers", p.config.Workers),
			slog.Int("queueSize", p.config.QueueSize))
		for i := 0; i < p.config.Workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
			defer cancel()
			n, err := p.Backfill(ctx)
			if err != nil {
				p.logger.Warn("enrichment backfill failed", slog.String("error", err.Error()))
				return
			}
			if n > 0 {
				p.logger.Info("queued unenriched links", slog.Int("count", n))
			}
		}()
	})
}

// Backfill queues up to one queue's worth of links that were saved but never
// enriched, for example by the CLI or while the server was down. It returns
// how many were queued.
func (p *Pool) Backfill(ctx context.Context) (int, error) {
	ids, err := p.links.ListUnenriched(ctx, p.config.QueueSize)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if !p.Enqueue(id) {
			break
		}
		n++
	}
	return n, nil
}

// Pending returns the number of queued jobs no worker has picked up yet.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

// Enqueue schedules linkID for enrichment without blocking. It reports false
// when the queue is full or the pool has been stopped; the job is dropped.
func (p *Pool) Enqueue(linkID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return false
	}

	select {
	case p.jobs <- linkID:
		return true
	default:
		p.logger.Warn("enrichment queue full, dropping job", slog.String("linkId", linkID))
		return false
	}
}

// Stop refuses new jobs, lets the workers finish everything already queued
// and waits for them. Safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.logger.Info("stopping enrichment workers")
	p.wg.Wait()
}

func (p *Pool) worker(n int) {
	defer p.wg.Done()

	for id := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
		if _, err := p.Process(ctx, id); err != nil {
			level := slog.LevelWarn
			if apperror.IsNotFound(err) {
				// The link was deleted while queued.
				level = slog.LevelDebug
			}
			p.logger.Log(ctx, level, "enrichment failed",
				slog.Int("worker", n),
				slog.String("linkId", id),
				slog.String("error", err.Error()))
		}
		cancel()
	}
}

// Process enriches one link synchronously and reports whether it changed.
// The fetch runs outside any transaction; the write-back fills only the
// fields that are still empty at that moment, so edits and toggles made
// during the fetch survive.
func (p *Pool) Process(ctx context.Context, linkID string) (bool, error) {
	link, err := p.links.GetByID(ctx, linkID)
	if err != nil {
		return false, err
	}
	if link.HasTitle() && link.Description != "" && link.PreviewImageURL != "" {
		return false, nil
	}

	meta, err := p.fetcher.Fetch(ctx, link.URL)
	if err != nil {
		return false, err
	}

	changed, err := p.links.FillMetadata(ctx, linkID, repository.LinkMetadata{
		Title:       meta.Title,
		Description: meta.Description,
		Image:       meta.Image,
	}, time.Now())
	if err != nil {
		return false, err
	}
	if changed {
		p.logger.Info("link enriched", slog.String("linkId", linkID))
	}
	return changed, nil
}
