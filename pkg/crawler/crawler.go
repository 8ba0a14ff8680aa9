// Package crawler composes the engine into one incremental run per user:
// resolve the profile, stream posts newest-first, cut the stream at the
// persisted watermark, skip already-materialized files, and persist the
// new watermark on the way out, even when the run is aborted.
package crawler

import (
	"context"
	stderrors "errors"
	"time"

	"xqcrawl/pkg/errors"
	"xqcrawl/pkg/logger"
	"xqcrawl/pkg/models"
	"xqcrawl/pkg/state"
	"xqcrawl/pkg/storage"
)

// errStop cuts a stream once the watermark is reached. It never escapes
// Run.
var errStop = stderrors.New("watermark reached")

// Source streams one user's posts newest-first to a yield callback. The
// API paginator and the browser channel both satisfy it.
type Source interface {
	Stream(ctx context.Context, userID int64, yield func(*models.Post) error) error
}

// Resolver turns a logical user reference (numeric id or nickname) into
// a canonical profile.
type Resolver interface {
	ResolveProfile(ctx context.Context, ref string) (*models.Profile, error)
}

// ProgressFunc is invoked synchronously once per newly persisted post,
// in stream order, with its 1-based sequence number in the run. Never
// invoked for skipped or errored items.
type ProgressFunc func(seq int, post *models.Post)

// Options wires a crawler run.
type Options struct {
	Resolver  Resolver
	Primary   Source
	Fallback  Source // optional; used when the primary channel is blocked
	OutputDir string
	// ForceFallback starts on the fallback channel directly.
	ForceFallback bool
	Progress      ProgressFunc
	Logger        logger.Logger
}

// Crawler runs incremental crawls. One instance per target user at a
// time; concurrent runs for the same user must be serialized by the
// caller.
type Crawler struct {
	resolver      Resolver
	primary       Source
	fallback      Source
	outputDir     string
	forceFallback bool
	progress      ProgressFunc
	logger        logger.Logger
}

// New builds a crawler from its wired dependencies.
func New(opts Options) *Crawler {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Crawler{
		resolver:      opts.Resolver,
		primary:       opts.Primary,
		fallback:      opts.Fallback,
		outputDir:     opts.OutputDir,
		forceFallback: opts.ForceFallback,
		progress:      opts.Progress,
		logger:        log,
	}
}

// runState accumulates one run's progress between streaming and
// finalizing.
type runState struct {
	watermark int64
	candidate int64
	seq       int
	stats     models.Stats
}

// Run executes one incremental crawl for the referenced user and returns
// its stats. State is persisted before any error propagates, so partial
// progress survives aborts and interrupts.
func (c *Crawler) Run(ctx context.Context, userRef string) (*models.Stats, error) {
	profile, err := c.resolver.ResolveProfile(ctx, userRef)
	if err != nil {
		return &models.Stats{}, err
	}
	c.logger.InfoWithFields("profile resolved", map[string]interface{}{
		"user_id":  profile.ID,
		"nickname": profile.Nickname,
	})

	store, err := storage.NewManager(c.outputDir, profile.Nickname)
	if err != nil {
		return &models.Stats{}, err
	}
	stateMgr := state.NewManager(store.UserDir(), c.logger)
	st, err := stateMgr.Load()
	if err != nil {
		return &models.Stats{}, err
	}

	if err := store.SaveProfile(profile); err != nil {
		c.logger.WarnWithFields("failed to save profile", map[string]interface{}{"error": err.Error()})
	}

	run := &runState{watermark: st.LastCrawledPostID}
	if run.watermark > 0 {
		c.logger.InfoWithFields("resuming from watermark", map[string]interface{}{
			"last_crawled_post_id": run.watermark,
		})
	}

	streamErr := c.stream(ctx, profile.ID, store, run)

	// State is written exactly once per run, whatever happened above.
	finalErr := c.finalize(stateMgr, st, run)

	c.logger.InfoWithFields("run finished", map[string]interface{}{
		"new":     run.stats.NewCount,
		"skipped": run.stats.SkipCount,
		"errors":  run.stats.ErrorCount,
	})

	if streamErr != nil {
		return &run.stats, streamErr
	}
	return &run.stats, finalErr
}

// stream drives the selected channel and switches to the fallback when
// the primary is blocked mid-run.
func (c *Crawler) stream(ctx context.Context, userID int64, store *storage.Manager, run *runState) error {
	source := c.primary
	if c.forceFallback && c.fallback != nil {
		source = c.fallback
	}

	err := source.Stream(ctx, userID, c.yieldFunc(store, run))
	if errors.IsType(err, errors.ErrorTypeBlocked) && c.fallback != nil && source != c.fallback {
		c.logger.Warn("API channel blocked, switching to browser channel")
		err = c.fallback.Stream(ctx, userID, c.yieldFunc(store, run))
	}
	if stderrors.Is(err, errStop) {
		return nil
	}
	return err
}

// yieldFunc classifies each streamed post: past the watermark stops the
// stream, an existing file is a skip, everything else is persisted. The
// first new item's id becomes the next watermark even if later items
// fail; write failures are the only absorbed error.
func (c *Crawler) yieldFunc(store *storage.Manager, run *runState) func(*models.Post) error {
	return func(post *models.Post) error {
		if run.watermark > 0 && post.ID <= run.watermark {
			return errStop
		}

		filename := store.Filename(post)
		if store.Exists(filename) {
			run.stats.SkipCount++
			c.logger.DebugWithFields("already materialized", map[string]interface{}{
				"post_id": post.ID,
				"file":    filename,
			})
			return nil
		}

		if run.candidate == 0 {
			run.candidate = post.ID
		}

		if err := store.SaveRecord(post); err != nil {
			run.stats.ErrorCount++
			c.logger.ErrorWithFields("failed to persist post", map[string]interface{}{
				"post_id": post.ID,
				"error":   err.Error(),
			})
			return nil
		}

		run.stats.NewCount++
		run.seq++
		if c.progress != nil {
			c.progress(run.seq, post)
		}
		return nil
	}
}

func (c *Crawler) finalize(mgr *state.Manager, st *state.State, run *runState) error {
	if run.candidate != 0 {
		st.LastCrawledPostID = run.candidate
	}
	st.LastCrawledAt = time.Now()
	return mgr.Save(st)
}
