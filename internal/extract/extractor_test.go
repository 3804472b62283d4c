package extract

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"linksum/internal/slack"
)

func TestFromEvent_FreeText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty text",
			text: "",
			want: nil,
		},
		{
			name: "no urls",
			text: "nothing to see here",
			want: nil,
		},
		{
			name: "bracketed link with label",
			text: "check <https://example.com|this>",
			want: []string{"https://example.com"},
		},
		{
			name: "bracketed link without label",
			text: "<https://example.com/a>",
			want: []string{"https://example.com/a"},
		},
		{
			name: "bare url",
			text: "see https://example.com/page for details",
			want: []string{"https://example.com/page"},
		},
		{
			name: "bracketed before bare in output order",
			text: "https://bare.example.com then <https://bracketed.example.com|x>",
			want: []string{"https://bracketed.example.com", "https://bare.example.com"},
		},
		{
			name: "duplicates collapse to first occurrence",
			text: "<https://example.com> and again https://example.com",
			want: []string{"https://example.com"},
		},
		{
			name: "http scheme tolerated",
			text: "http://insecure.example.com",
			want: []string{"http://insecure.example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &slack.MessageEvent{Type: slack.EventTypeMessage, Text: tt.text}
			assert.Equal(t, tt.want, FromEvent(event, 20))
		})
	}
}

func TestFromEvent_MaxURLsTruncates(t *testing.T) {
	text := ""
	for i := 0; i < 30; i++ {
		text += fmt.Sprintf("https://example.com/%d ", i)
	}

	event := &slack.MessageEvent{Type: slack.EventTypeMessage, Text: text}
	urls := FromEvent(event, 20)

	assert.Len(t, urls, 20)
	assert.Equal(t, "https://example.com/0", urls[0])
	assert.Equal(t, "https://example.com/19", urls[19])
}

func TestFromEvent_BlockTree(t *testing.T) {
	event := &slack.MessageEvent{
		Type: slack.EventTypeMessage,
		Blocks: []slack.Block{
			{
				Type: "rich_text",
				Elements: []slack.BlockElement{
					{
						Type: "rich_text_section",
						Elements: []slack.BlockElement{
							{Type: "text", Text: "look at "},
							{Type: "link", URL: "https://example.com/blocks"},
						},
					},
				},
			},
		},
	}

	assert.Equal(t, []string{"https://example.com/blocks"}, FromEvent(event, 20))
}

func TestFromEvent_TextBeforeBlocks(t *testing.T) {
	event := &slack.MessageEvent{
		Type: slack.EventTypeMessage,
		Text: "<https://example.com/text>",
		Blocks: []slack.Block{
			{
				Type: "rich_text",
				Elements: []slack.BlockElement{
					{
						Type: "rich_text_section",
						Elements: []slack.BlockElement{
							{Type: "link", URL: "https://example.com/blocks"},
						},
					},
				},
			},
		},
	}

	assert.Equal(t, []string{"https://example.com/text", "https://example.com/blocks"}, FromEvent(event, 20))
}

func TestFromEvent_LinkSharedUsesSuppliedLinks(t *testing.T) {
	event := &slack.MessageEvent{
		Type: slack.EventTypeLinkShared,
		Text: "https://example.com/should-be-ignored",
		Links: []slack.SharedLink{
			{Domain: "example.com", URL: "https://example.com/shared"},
			{Domain: "example.com", URL: "https://example.com/shared"},
		},
	}

	assert.Equal(t, []string{"https://example.com/shared"}, FromEvent(event, 20))
}

func TestUnwrapRedirect(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "google redirector unwraps",
			in:   "https://www.google.com/url?sa=t&url=https%3A%2F%2Fexample.com%2Farticle",
			want: "https://example.com/article",
		},
		{
			name: "bare google host unwraps",
			in:   "https://google.com/url?url=https%3A%2F%2Fexample.com",
			want: "https://example.com",
		},
		{
			name: "missing url parameter kept",
			in:   "https://www.google.com/url?sa=t&q=example",
			want: "https://www.google.com/url?sa=t&q=example",
		},
		{
			name: "relative target kept",
			in:   "https://www.google.com/url?url=%2Frelative%2Fpath",
			want: "https://www.google.com/url?url=%2Frelative%2Fpath",
		},
		{
			name: "non-http target kept",
			in:   "https://www.google.com/url?url=javascript%3Aalert(1)",
			want: "https://www.google.com/url?url=javascript%3Aalert(1)",
		},
		{
			name: "other hosts untouched",
			in:   "https://example.com/url?url=https%3A%2F%2Fother.example.com",
			want: "https://example.com/url?url=https%3A%2F%2Fother.example.com",
		},
		{
			name: "plain url untouched",
			in:   "https://example.com/page",
			want: "https://example.com/page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unwrapRedirect(tt.in))
		})
	}
}

func TestLocatorSet_RedirectUnwrappedBeforeDedup(t *testing.T) {
	set := NewLocatorSet(20)
	set.Add("https://example.com/article")
	set.Add("https://www.google.com/url?url=https%3A%2F%2Fexample.com%2Farticle")

	assert.Equal(t, []string{"https://example.com/article"}, set.URLs())
}
