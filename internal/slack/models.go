package slack

import "encoding/json"

const (
	EnvelopeTypeURLVerification = "url_verification"
	EnvelopeTypeEventCallback   = "event_callback"
)

const (
	EventTypeMessage    = "message"
	EventTypeAppMention = "app_mention"
	EventTypeLinkShared = "link_shared"
)

// InboundEnvelope is one webhook delivery from the Events API. Exactly one
// of Challenge or Event is meaningful depending on Type.
type InboundEnvelope struct {
	Type      string        `json:"type"`
	Token     string        `json:"token,omitempty"`
	Challenge string        `json:"challenge,omitempty"`
	TeamID    string        `json:"team_id,omitempty"`
	EventID   string        `json:"event_id,omitempty"`
	EventTime int64         `json:"event_time,omitempty"`
	Event     *MessageEvent `json:"event,omitempty"`
}

// MessageEvent is a chat message or link-share notification. Constructed
// once per delivery and treated as read-only by the pipeline.
type MessageEvent struct {
	Type            string          `json:"type"`
	Subtype         string          `json:"subtype,omitempty"`
	Text            string          `json:"text,omitempty"`
	User            string          `json:"user,omitempty"`
	BotID           string          `json:"bot_id,omitempty"`
	Channel         string          `json:"channel,omitempty"`
	Timestamp       string          `json:"ts,omitempty"`
	MessageTS       string          `json:"message_ts,omitempty"`
	EventTimestamp  string          `json:"event_ts,omitempty"`
	ThreadTimestamp string          `json:"thread_ts,omitempty"`
	PreviousMessage json.RawMessage `json:"previous_message,omitempty"`
	Blocks          []Block         `json:"blocks,omitempty"`
	Links           []SharedLink    `json:"links,omitempty"`
}

// IsEdit reports whether this delivery describes a message edit, which
// includes the unfurl-preview updates Slack sends after a link post.
func (e *MessageEvent) IsEdit() bool {
	return len(e.PreviousMessage) > 0
}

// IsBot reports whether the message originated from a bot, ours included.
func (e *MessageEvent) IsBot() bool {
	return e.BotID != ""
}

// ReplyThread returns the thread a reply should target: the existing thread
// when the message is part of one, otherwise the message itself. link_shared
// events carry the message timestamp as message_ts.
func (e *MessageEvent) ReplyThread() string {
	if e.ThreadTimestamp != "" {
		return e.ThreadTimestamp
	}
	if e.Timestamp != "" {
		return e.Timestamp
	}
	return e.MessageTS
}

// Block is one entry of a rich-text block tree.
type Block struct {
	Type     string         `json:"type"`
	BlockID  string         `json:"block_id,omitempty"`
	Elements []BlockElement `json:"elements,omitempty"`
}

type BlockElement struct {
	Type     string         `json:"type"`
	URL      string         `json:"url,omitempty"`
	Text     string         `json:"text,omitempty"`
	Elements []BlockElement `json:"elements,omitempty"`
}

// SharedLink is a pre-extracted locator on link_shared events.
type SharedLink struct {
	Domain string `json:"domain,omitempty"`
	URL    string `json:"url"`
}
