package browser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"time"

	"xqcrawl/pkg/xueqiu"
)

var (
	postLinkRe     = regexp.MustCompile(`(\d+)/(\d+)$`)
	embeddedTextRe = regexp.MustCompile(`"text"\s*:\s*("(?:[^"\\]|\\.)*")`)
)

// decodeListBody interprets an intercepted list response as either the
// timeline or the column shape, whichever yields items.
func decodeListBody(body []byte) []xueqiu.Status {
	var tl xueqiu.TimelineResponse
	if err := json.Unmarshal(body, &tl); err == nil && len(tl.Statuses) > 0 {
		return tl.Statuses
	}
	var col xueqiu.ColumnResponse
	if err := json.Unmarshal(body, &col); err == nil && len(col.List) > 0 {
		return col.List
	}
	return nil
}

// parsePostLink extracts the user and post ids from a status link path
// such as /8106514687/360897715.
func parsePostLink(href string) (userID, postID int64, ok bool) {
	m := postLinkRe.FindStringSubmatch(href)
	if m == nil {
		return 0, 0, false
	}
	userID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	postID, err = strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return userID, postID, true
}

// parseEmbeddedText finds the first "text" field in a rendered detail
// page's inline JSON and decodes it. Long-post pages embed the full body
// this way even when no detail API call fires.
func parseEmbeddedText(pageHTML string) (string, bool) {
	m := embeddedTextRe.FindStringSubmatch(pageHTML)
	if m == nil {
		return "", false
	}
	var text string
	if err := json.Unmarshal([]byte(m[1]), &text); err != nil {
		return "", false
	}
	if text == "" {
		return "", false
	}
	return text, true
}

// domItem is one post scraped straight out of the rendered timeline DOM,
// the channel's last-resort source.
type domItem struct {
	Href     string `json:"href"`
	Nickname string `json:"nickname"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Datetime string `json:"datetime"`
}

// parseDOMItems converts the JSON emitted by the extraction script into
// raw statuses, keeping only items that belong to the requested user.
func parseDOMItems(raw string, userID int64) ([]xueqiu.Status, error) {
	var items []domItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}

	statuses := make([]xueqiu.Status, 0, len(items))
	for _, it := range items {
		uid, pid, ok := parsePostLink(it.Href)
		if !ok || pid == 0 {
			continue
		}
		if userID > 0 && uid != userID {
			continue
		}

		var createdAt int64
		if it.Datetime != "" {
			if t, err := time.Parse(time.RFC3339, it.Datetime); err == nil {
				createdAt = t.UnixMilli()
			}
		}

		statuses = append(statuses, xueqiu.Status{
			ID:        pid,
			Title:     it.Title,
			Text:      it.Text,
			CreatedAt: createdAt,
			User:      xueqiu.StatusUser{ID: uid, ScreenName: it.Nickname},
		})
	}
	return statuses, nil
}
