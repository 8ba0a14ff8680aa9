package browser

import (
	"context"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// capture identifies one intercepted response whose body can still be
// pulled from the browser.
type capture struct {
	requestID network.RequestID
	url       string
}

// interceptor subscribes to the page's own network traffic and queues
// responses whose URL contains one of the match substrings. The queue is
// bounded; when the consumer falls behind, further captures are dropped
// rather than blocking the browser event loop.
type interceptor struct {
	ctx      context.Context
	captures chan capture
}

func newInterceptor(ctx context.Context, matches []string, buffer int) *interceptor {
	in := &interceptor{
		ctx:      ctx,
		captures: make(chan capture, buffer),
	}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok {
			return
		}
		for _, m := range matches {
			if strings.Contains(resp.Response.URL, m) {
				select {
				case in.captures <- capture{requestID: resp.RequestID, url: resp.Response.URL}:
				default:
				}
				return
			}
		}
	})
	return in
}

// Drain returns every capture queued so far without blocking.
func (in *interceptor) Drain() []capture {
	var out []capture
	for {
		select {
		case c := <-in.captures:
			out = append(out, c)
		default:
			return out
		}
	}
}

// Body pulls the response body of a capture out of the browser. Fails if
// the browser has already evicted it from its cache.
func (in *interceptor) Body(c capture) ([]byte, error) {
	var body []byte
	err := chromedp.Run(in.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(c.requestID).Do(ctx)
		return err
	}))
	return body, err
}
