package xueqiu

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xqcrawl/pkg/models"
)

func TestCleanHTML(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "观点不变", "观点不变"},
		{"tags stripped", `<a href="/x">链接</a>内容`, "链接内容"},
		{"br to newline", "第一行<br>第二行<br/>第三行", "第一行\n第二行\n第三行"},
		{"paragraph break", "<p>甲</p><p>乙</p>", "甲\n\n乙"},
		{"script removed with body", `正文<script>alert(1)</script>继续`, "正文继续"},
		{"style removed with body", `正文<style>.x{color:red}</style>继续`, "正文继续"},
		{"entities", "A&nbsp;&lt;B&gt;&amp;C", "A <B>&C"},
		{"blank lines collapsed", "甲\n\n\n\n乙", "甲\n\n乙"},
		{"trimmed", "  <p>内容</p>  ", "内容"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, CleanHTML(c.in))
		})
	}
}

func TestCleanHTMLCollapsesGeneratedBlankRuns(t *testing.T) {
	// Consecutive empty paragraphs expand to many newlines before the
	// collapse pass; the result must keep exactly one blank line.
	got := CleanHTML("<p>甲</p><p></p><p></p><p>乙</p>")
	assert.Equal(t, "甲\n\n乙", got)
	assert.False(t, strings.Contains(got, "\n\n\n"))
}

func TestExtractSymbols(t *testing.T) {
	symbols := ExtractSymbols("$贵州茅台(SH600519)$ 加仓 $腾讯$")
	assert.Equal(t, []string{"SH600519", "腾讯"}, symbols)
}

func TestExtractSymbolsBareTicker(t *testing.T) {
	symbols := ExtractSymbols("关注 sh600000 和 SZ000001 的走势")
	assert.Equal(t, []string{"SH600000", "SZ000001"}, symbols)
}

func TestExtractSymbolsDeduplicated(t *testing.T) {
	symbols := ExtractSymbols("$腾讯$ 还是 $腾讯$，以及 $贵州茅台(SH600519)$ 与 SH600519")
	assert.Equal(t, []string{"SH600519", "腾讯"}, symbols)
}

func TestExtractSymbolsEmpty(t *testing.T) {
	assert.Empty(t, ExtractSymbols(""))
	assert.Empty(t, ExtractSymbols("没有提到任何标的"))
}

func TestParseStatus(t *testing.T) {
	st := &Status{
		ID:           360897715,
		Title:        "年度总结",
		Text:         "<p>今年重点持有 $贵州茅台(SH600519)$</p>",
		Mark:         1,
		CreatedAt:    1700000000000,
		LikeCount:    12,
		ReplyCount:   3,
		RetweetCount: 1,
		User:         StatusUser{ID: 8106514687, ScreenName: "某大V"},
	}

	post := ParseStatus(st)
	require.NotNil(t, post)

	assert.Equal(t, int64(360897715), post.ID)
	assert.Equal(t, int64(8106514687), post.UserID)
	assert.Equal(t, "某大V", post.Nickname)
	assert.Equal(t, "年度总结", post.Title)
	assert.Equal(t, "今年重点持有 $贵州茅台(SH600519)$", post.BodyText)
	assert.Equal(t, models.KindLong, post.Kind)
	assert.Equal(t, "https://xueqiu.com/8106514687/360897715", post.URL)
	assert.Equal(t, []string{"SH600519"}, post.Symbols)
	assert.Equal(t, time.UnixMilli(1700000000000), post.CreatedAt)
	assert.Equal(t, 12, post.LikeCount)
	assert.Equal(t, 3, post.CommentCount)
	assert.Equal(t, 1, post.RepostCount)
}

func TestParseStatusShortWithoutTitle(t *testing.T) {
	st := &Status{
		ID:        1,
		Text:      "看多",
		CreatedAt: 1700000000000,
		User:      StatusUser{ID: 2},
	}
	post := ParseStatus(st)
	require.NotNil(t, post)
	assert.Equal(t, models.KindShort, post.Kind)
	assert.False(t, post.IsLong())
}

func TestParseStatusFallsBackToDescription(t *testing.T) {
	st := &Status{
		ID:          2,
		Description: "描述里的内容",
		User:        StatusUser{ID: 3},
	}
	post := ParseStatus(st)
	require.NotNil(t, post)
	assert.Equal(t, "描述里的内容", post.BodyText)
}

func TestParseStatusNilAndEmpty(t *testing.T) {
	assert.Nil(t, ParseStatus(nil))
	assert.Nil(t, ParseStatus(&Status{}))
}
