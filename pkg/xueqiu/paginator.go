package xueqiu

import (
	"context"

	"xqcrawl/pkg/config"
	"xqcrawl/pkg/logger"
	"xqcrawl/pkg/models"
)

// Paginator walks a user's posts page by page over the API channel and
// yields normalized records in the source's native order, newest first.
// Each Stream call starts over from the newest item; streams are finite
// and not restartable mid-way.
type Paginator struct {
	client   *Client
	mode     string
	pageSize int
	maxPages int
	logger   logger.Logger
}

// NewPaginator builds a paginator for the configured crawl mode.
func NewPaginator(client *Client, crawl config.CrawlConfig, log logger.Logger) *Paginator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Paginator{
		client:   client,
		mode:     crawl.Mode,
		pageSize: crawl.PageSize,
		maxPages: crawl.MaxPages,
		logger:   log,
	}
}

// Stream yields each post to the callback until the listing is exhausted,
// the page budget is reached, or the callback returns an error. A
// malformed page aborts the stream with the underlying error; items
// already yielded stay valid.
func (p *Paginator) Stream(ctx context.Context, userID int64, yield func(*models.Post) error) error {
	switch p.mode {
	case config.ModeTimeline:
		return p.streamTimeline(ctx, userID, yield)
	default:
		return p.streamColumn(ctx, userID, yield)
	}
}

// streamColumn pages through the article column by offset. A page
// shorter than the page size is the last one.
func (p *Paginator) streamColumn(ctx context.Context, userID int64, yield func(*models.Post) error) error {
	for page := 1; ; page++ {
		if p.maxPages > 0 && page > p.maxPages {
			return nil
		}

		var resp ColumnResponse
		if err := p.client.GetJSON(ctx, ColumnEndpoint, ColumnParams(userID, page, p.pageSize), &resp); err != nil {
			return err
		}
		p.logger.DebugWithFields("column page fetched", map[string]interface{}{
			"user_id": userID,
			"page":    page,
			"items":   len(resp.List),
		})
		if len(resp.List) == 0 {
			return nil
		}

		for i := range resp.List {
			post := ParseStatus(&resp.List[i])
			if post == nil {
				continue
			}
			if err := yield(post); err != nil {
				return err
			}
		}

		if len(resp.List) < p.pageSize {
			return nil
		}
	}
}

// streamTimeline walks the feed with the server's own max_id cursor. A
// batch shorter than the page size is the last one.
func (p *Paginator) streamTimeline(ctx context.Context, userID int64, yield func(*models.Post) error) error {
	var maxID int64
	for page := 1; ; page++ {
		if p.maxPages > 0 && page > p.maxPages {
			return nil
		}

		var resp TimelineResponse
		if err := p.client.GetJSON(ctx, TimelineEndpoint, TimelineParams(userID, maxID, p.pageSize), &resp); err != nil {
			return err
		}
		p.logger.DebugWithFields("timeline batch fetched", map[string]interface{}{
			"user_id": userID,
			"max_id":  maxID,
			"items":   len(resp.Statuses),
		})
		if len(resp.Statuses) == 0 {
			return nil
		}

		for i := range resp.Statuses {
			post := ParseStatus(&resp.Statuses[i])
			if post == nil {
				continue
			}
			if err := yield(post); err != nil {
				return err
			}
		}

		if len(resp.Statuses) < p.pageSize || resp.NextMaxID <= 0 {
			return nil
		}
		maxID = resp.NextMaxID
	}
}
