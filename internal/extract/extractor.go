package extract

import (
	"net/url"
	"regexp"

	"linksum/internal/slack"
)

var (
	// Slack mrkdwn link syntax: <https://example.com|label> or <https://example.com>
	bracketedLinkRe = regexp.MustCompile(`<(https?://[^|>]+)(?:\|[^>]*)?>`)

	// Bare URLs in free text. Deliberately loose; the set is regex-constrained,
	// not validated.
	bareURLRe = regexp.MustCompile(`https?://[^\s<>|]+`)
)

// LocatorSet is an order-preserving set of normalized URLs capped at a
// maximum size. First occurrence wins; duplicates post-normalization are
// dropped silently, as are additions past the cap.
type LocatorSet struct {
	max  int
	seen map[string]struct{}
	urls []string
}

func NewLocatorSet(max int) *LocatorSet {
	return &LocatorSet{
		max:  max,
		seen: make(map[string]struct{}),
	}
}

func (s *LocatorSet) Add(raw string) {
	if s.Full() {
		return
	}

	u := unwrapRedirect(raw)
	if _, ok := s.seen[u]; ok {
		return
	}

	s.seen[u] = struct{}{}
	s.urls = append(s.urls, u)
}

func (s *LocatorSet) Full() bool {
	return len(s.urls) >= s.max
}

func (s *LocatorSet) URLs() []string {
	return s.urls
}

// FromEvent extracts the URLs an event refers to, in first-seen order.
// link_shared events carry pre-extracted locators; everything else goes
// through the free-text passes and the rich-text block walk.
func FromEvent(event *slack.MessageEvent, maxURLs int) []string {
	set := NewLocatorSet(maxURLs)

	if event.Type == slack.EventTypeLinkShared {
		for _, link := range event.Links {
			set.Add(link.URL)
		}
		return set.URLs()
	}

	FromText(event.Text, set)
	fromBlocks(event.Blocks, set)

	return set.URLs()
}

// FromText runs the two free-text passes: bracketed link syntax first,
// then bare http(s) substrings.
func FromText(text string, set *LocatorSet) {
	if text == "" {
		return
	}

	for _, m := range bracketedLinkRe.FindAllStringSubmatch(text, -1) {
		if set.Full() {
			return
		}
		set.Add(m[1])
	}

	for _, m := range bareURLRe.FindAllString(text, -1) {
		if set.Full() {
			return
		}
		set.Add(m)
	}
}

func fromBlocks(blocks []slack.Block, set *LocatorSet) {
	for _, block := range blocks {
		fromElements(block.Elements, set)
		if set.Full() {
			return
		}
	}
}

func fromElements(elements []slack.BlockElement, set *LocatorSet) {
	for _, el := range elements {
		if set.Full() {
			return
		}
		if el.Type == "link" && el.URL != "" {
			set.Add(el.URL)
		}
		fromElements(el.Elements, set)
	}
}

// unwrapRedirect rewrites a Google redirector URL to its embedded target.
// Anything that fails to parse cleanly is kept unmodified, never dropped.
func unwrapRedirect(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.Path != "/url" {
		return raw
	}
	if host := u.Hostname(); host != "www.google.com" && host != "google.com" {
		return raw
	}

	target := u.Query().Get("url")
	if target == "" {
		return raw
	}

	t, err := url.Parse(target)
	if err != nil || !t.IsAbs() || (t.Scheme != "http" && t.Scheme != "https") {
		return raw
	}

	return target
}
