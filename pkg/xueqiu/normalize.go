package xueqiu

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"xqcrawl/pkg/models"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	brRe     = regexp.MustCompile(`(?i)<br\s*/?>`)
	pCloseRe = regexp.MustCompile(`(?i)</p>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	blankRe  = regexp.MustCompile(`\n{3,}`)

	// Cashtag forms: $贵州茅台(SH600519)$ carries the code in parens,
	// $腾讯$ carries only a name, and bare regional tickers like SH600000
	// appear inline without markers.
	cashtagCodeRe = regexp.MustCompile(`\$([^$]+)\(([A-Za-z0-9]+)\)\$`)
	cashtagNameRe = regexp.MustCompile(`\$([^$()]+)\$`)
	bareTickerRe  = regexp.MustCompile(`(?i)\b(SH|SZ|HK)[0-9]{5,6}\b`)
)

// CleanHTML strips markup from a post body, keeping paragraph breaks:
// <br> becomes a newline, </p> a blank line, script and style blocks are
// removed with their contents, entities are unescaped, and runs of three
// or more newlines collapse to exactly one blank line.
func CleanHTML(s string) string {
	if s == "" {
		return ""
	}
	s = scriptRe.ReplaceAllString(s, "")
	s = styleRe.ReplaceAllString(s, "")
	s = brRe.ReplaceAllString(s, "\n")
	s = pCloseRe.ReplaceAllString(s, "\n\n")
	s = tagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = html.UnescapeString(s)
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ExtractSymbols pulls referenced ticker symbols out of raw post text.
// The result is deduplicated and sorted lexicographically so output is
// deterministic.
func ExtractSymbols(text string) []string {
	if text == "" {
		return []string{}
	}
	set := make(map[string]struct{})

	for _, m := range cashtagCodeRe.FindAllStringSubmatch(text, -1) {
		set[m[2]] = struct{}{}
	}
	// Remove code-form cashtags before the name scan, otherwise their
	// closing $ pairs up with the next tag's opening $.
	text = cashtagCodeRe.ReplaceAllString(text, " ")
	for _, m := range cashtagNameRe.FindAllStringSubmatch(text, -1) {
		if name := strings.TrimSpace(m[1]); name != "" {
			set[name] = struct{}{}
		}
	}
	for _, m := range bareTickerRe.FindAllString(text, -1) {
		set[strings.ToUpper(m)] = struct{}{}
	}

	symbols := make([]string, 0, len(set))
	for s := range set {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// ParseStatus normalizes one raw status into a Post. Returns nil for
// empty or id-less entries (the feed occasionally pads pages with them).
func ParseStatus(st *Status) *models.Post {
	if st == nil || st.ID == 0 {
		return nil
	}

	text := st.Text
	if text == "" {
		text = st.Description
	}

	kind := models.KindShort
	if st.Mark == 1 || st.Title != "" {
		kind = models.KindLong
	}

	var createdAt time.Time
	if st.CreatedAt > 0 {
		createdAt = time.UnixMilli(st.CreatedAt)
	}

	return &models.Post{
		ID:           st.ID,
		UserID:       st.User.ID,
		Nickname:     st.User.ScreenName,
		Title:        st.Title,
		BodyText:     CleanHTML(text),
		CreatedAt:    createdAt,
		URL:          PostURL(st.User.ID, st.ID),
		Kind:         kind,
		LikeCount:    st.LikeCount,
		CommentCount: st.ReplyCount,
		RepostCount:  st.RetweetCount,
		Symbols:      ExtractSymbols(text),
	}
}
