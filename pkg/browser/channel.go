package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"xqcrawl/pkg/config"
	"xqcrawl/pkg/errors"
	"xqcrawl/pkg/logger"
	"xqcrawl/pkg/models"
	"xqcrawl/pkg/ratelimit"
	"xqcrawl/pkg/session"
	"xqcrawl/pkg/xueqiu"
)

const (
	cookieDomain = ".xueqiu.com"

	// renderSettle is how long the first paint gets before the initial
	// intercept drain.
	renderSettle = 1500 * time.Millisecond

	// scrollPause is the wait after each scroll for the lazy loader to
	// fire its next list request.
	scrollPause = 1200 * time.Millisecond

	// idleRounds is how many consecutive scrolls without new items end
	// the listing pass.
	idleRounds = 2

	challengePoll = 2 * time.Second
)

// challengeProbeJS reports whether a slide-verify or captcha widget is
// currently in the DOM.
const challengeProbeJS = `document.querySelector('#nc_1_wrapper, .nc-container, [id^="nc_"], iframe[src*="captcha"], iframe[src*="punish"]') !== null`

// extractItemsJS scrapes the rendered timeline into a JSON array of raw
// items when no list response could be intercepted.
const extractItemsJS = `(() => {
	const nameEl = document.querySelector('.profiles__main .name, .user-name');
	const nickname = nameEl ? nameEl.textContent.trim() : '';
	const items = [];
	document.querySelectorAll('article, .timeline__item').forEach(el => {
		const a = Array.from(el.querySelectorAll('a')).find(x => /\/\d+\/\d+$/.test(x.pathname || ''));
		if (!a) return;
		const titleEl = el.querySelector('h3, .timeline__item__title');
		const textEl = el.querySelector('.content, .timeline__item__content');
		const timeEl = el.querySelector('time');
		items.push({
			href: a.pathname,
			nickname: nickname,
			title: titleEl ? titleEl.textContent.trim() : '',
			text: (textEl ? textEl.textContent : el.textContent || '').trim(),
			datetime: timeEl ? (timeEl.getAttribute('datetime') || '') : ''
		});
	});
	return JSON.stringify(items);
})()`

// listEndpoints are the URL fragments of the list responses worth
// intercepting while the timeline renders.
var listEndpoints = []string{
	xueqiu.TimelineEndpoint,
	xueqiu.ColumnEndpoint,
}

// Channel streams a user's posts through a rendered browser session. It
// satisfies the same streaming contract as the API paginator, so the
// orchestrator can swap it in when the API channel is blocked.
type Channel struct {
	cfg     *config.Config
	session *session.Store
	limiter ratelimit.Limiter
	logger  logger.Logger
}

// NewChannel builds the fallback channel. The limiter should be the same
// instance the API channel uses so pacing stays global.
func NewChannel(cfg *config.Config, sess *session.Store, limiter ratelimit.Limiter, log logger.Logger) *Channel {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Channel{cfg: cfg, session: sess, limiter: limiter, logger: log}
}

// Stream renders the user's timeline, yields each post newest-first, and
// visits long posts individually for their full bodies. Each call starts
// a fresh browser session.
func (c *Channel) Stream(ctx context.Context, userID int64, yield func(*models.Post) error) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.execOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	listCaptures := newInterceptor(browserCtx, listEndpoints, 32)

	userURL := fmt.Sprintf("%s/u/%d", xueqiu.BaseURL, userID)
	c.logger.InfoWithFields("opening browser session", map[string]interface{}{
		"url":      userURL,
		"headless": c.cfg.Browser.Headless,
	})

	if err := chromedp.Run(browserCtx,
		network.Enable(),
		c.setCookies(),
		chromedp.Navigate(userURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return errors.Newf(errors.ErrorTypeTransport, "browser navigation failed: %v", err)
	}

	if err := c.awaitChallenge(browserCtx); err != nil {
		return err
	}

	statuses, err := c.collectList(browserCtx, listCaptures)
	if err != nil {
		return err
	}
	if len(statuses) == 0 {
		c.logger.Warn("no list responses intercepted, extracting from DOM")
		statuses, err = c.extractFromDOM(browserCtx, userID)
		if err != nil {
			return err
		}
	}
	c.logger.InfoWithFields("browser listing complete", map[string]interface{}{
		"user_id": userID,
		"items":   len(statuses),
	})

	for i := range statuses {
		post := xueqiu.ParseStatus(&statuses[i])
		if post == nil {
			continue
		}
		if post.IsLong() {
			// List entries truncate article bodies; the detail page
			// has the full text.
			if err := c.fillDetail(browserCtx, post); err != nil {
				c.logger.WarnWithFields("detail fetch failed, keeping listing body", map[string]interface{}{
					"post_id": post.ID,
					"error":   err.Error(),
				})
			}
		}
		if err := yield(post); err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) execOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	return append(opts,
		chromedp.Flag("headless", c.cfg.Browser.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.UserAgent(c.cfg.HTTP.UserAgent),
	)
}

// setCookies injects the session's cookie set before the first
// navigation so the page renders logged in.
func (c *Channel) setCookies() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for name, value := range c.session.Cookies() {
			err := network.SetCookie(name, value).
				WithDomain(cookieDomain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", name, err)
			}
		}
		return nil
	})
}

// awaitChallenge blocks while a slide-verify widget is on screen, giving
// a human time to complete it. The wait is bounded; an unresolved
// challenge fails the channel instead of hanging the run.
func (c *Channel) awaitChallenge(browserCtx context.Context) error {
	present, err := c.challengePresent(browserCtx)
	if err != nil || !present {
		return err
	}

	c.logger.Warn("verification challenge detected, waiting for completion in the browser window")
	deadline := time.Now().Add(c.cfg.Browser.ChallengeTimeout())
	for time.Now().Before(deadline) {
		select {
		case <-browserCtx.Done():
			return browserCtx.Err()
		case <-time.After(challengePoll):
		}
		present, err = c.challengePresent(browserCtx)
		if err != nil {
			return err
		}
		if !present {
			c.logger.Info("challenge cleared")
			return nil
		}
	}
	return errors.New(errors.ErrorTypeBlocked, "verification challenge was not completed in time")
}

func (c *Channel) challengePresent(browserCtx context.Context) (bool, error) {
	var present bool
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(challengeProbeJS, &present)); err != nil {
		return false, errors.Newf(errors.ErrorTypeTransport, "challenge probe failed: %v", err)
	}
	return present, nil
}

// collectList scrolls the timeline and drains intercepted list responses
// until scrolling stops producing new items or the page budget is
// reached. Items keep their arrival order, newest first.
func (c *Channel) collectList(browserCtx context.Context, in *interceptor) ([]xueqiu.Status, error) {
	var (
		statuses []xueqiu.Status
		seen     = make(map[int64]bool)
		idle     int
	)
	limit := 0
	if c.cfg.Crawl.MaxPages > 0 {
		limit = c.cfg.Crawl.MaxPages * c.cfg.Crawl.PageSize
	}

	if err := chromedp.Run(browserCtx, chromedp.Sleep(renderSettle)); err != nil {
		return nil, errors.Newf(errors.ErrorTypeTransport, "browser wait failed: %v", err)
	}

	for {
		added := 0
		for _, cap := range in.Drain() {
			body, err := in.Body(cap)
			if err != nil {
				c.logger.DebugWithFields("intercepted body unavailable", map[string]interface{}{
					"url":   cap.url,
					"error": err.Error(),
				})
				continue
			}
			for _, st := range decodeListBody(body) {
				if st.ID == 0 || seen[st.ID] {
					continue
				}
				seen[st.ID] = true
				statuses = append(statuses, st)
				added++
			}
		}

		if limit > 0 && len(statuses) >= limit {
			return statuses[:limit], nil
		}
		if added == 0 {
			idle++
			if idle > idleRounds {
				return statuses, nil
			}
		} else {
			idle = 0
		}

		if err := chromedp.Run(browserCtx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(scrollPause),
		); err != nil {
			return statuses, errors.Newf(errors.ErrorTypeTransport, "browser scroll failed: %v", err)
		}
	}
}

func (c *Channel) extractFromDOM(browserCtx context.Context, userID int64) ([]xueqiu.Status, error) {
	var raw string
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(extractItemsJS, &raw)); err != nil {
		return nil, errors.Newf(errors.ErrorTypeTransport, "DOM extraction failed: %v", err)
	}
	statuses, err := parseDOMItems(raw, userID)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeMalformed, "DOM extraction produced unreadable items: %v", err)
	}
	return statuses, nil
}

// fillDetail opens the post's own page in a new tab and replaces the
// truncated listing body with the full text, preferring an intercepted
// detail response over the page's embedded JSON.
func (c *Channel) fillDetail(browserCtx context.Context, post *models.Post) error {
	if err := c.limiter.Wait(browserCtx); err != nil {
		return err
	}

	tabCtx, cancel := chromedp.NewContext(browserCtx)
	defer cancel()

	detailCaptures := newInterceptor(tabCtx, []string{xueqiu.StatusDetailEndpoint}, 4)

	var pageHTML string
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(post.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(renderSettle),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("detail navigation failed: %w", err)
	}

	if err := c.awaitChallenge(tabCtx); err != nil {
		return err
	}

	for _, cap := range detailCaptures.Drain() {
		body, err := detailCaptures.Body(cap)
		if err != nil {
			continue
		}
		var resp xueqiu.StatusDetailResponse
		if err := json.Unmarshal(body, &resp); err == nil && resp.Text != "" {
			c.applyBody(post, resp.Text)
			return nil
		}
	}

	if text, ok := parseEmbeddedText(pageHTML); ok {
		c.applyBody(post, text)
		return nil
	}
	return fmt.Errorf("no full body found for post %d", post.ID)
}

func (c *Channel) applyBody(post *models.Post, rawText string) {
	post.BodyText = xueqiu.CleanHTML(rawText)
	post.Symbols = xueqiu.ExtractSymbols(rawText)
}
