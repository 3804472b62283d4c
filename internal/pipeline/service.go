package pipeline

import (
	"context"
	"errors"
	"sync"

	"linksum/internal/delivery"
	"linksum/internal/extract"
	"linksum/internal/logger"
	"linksum/internal/rules"
	"linksum/internal/slack"
	"linksum/internal/summarize"
	"linksum/pkg/logging"
	"linksum/pkg/metrics"
)

// Outcome classifies what the pipeline did with one webhook delivery.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
)

const (
	apologyUnreachable = "Sorry, I couldn't reach the page behind that link, so there's nothing to summarize."
	apologyGeneric     = "Sorry, something went wrong while summarizing that link. Please try again later."
)

// DedupStore is the idempotency ledger contract.
type DedupStore interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
}

// Poster delivers one outbound message.
type Poster interface {
	PostMessage(ctx context.Context, req slack.PostMessageRequest) error
}

// Deliverer paces outbound sends per destination.
type Deliverer interface {
	Schedule(destID string, fn delivery.SendFunc)
}

// Service orchestrates the stages between an authenticated webhook delivery
// and the outbound replies. Process runs only the fast path (dedup and
// classification); everything that talks to the network happens on a
// background goroutine after the caller has acked the delivery.
type Service struct {
	dedup      DedupStore
	summarizer summarize.Summarizer
	poster     Poster
	scheduler  Deliverer
	ignore     *rules.IgnoreRules
	maxURLs    int
	logger     logger.Logger

	wg sync.WaitGroup
}

func NewService(
	dedup DedupStore,
	summarizer summarize.Summarizer,
	poster Poster,
	scheduler Deliverer,
	ignore *rules.IgnoreRules,
	maxURLs int,
	log logger.Logger,
) *Service {
	return &Service{
		dedup:      dedup,
		summarizer: summarizer,
		poster:     poster,
		scheduler:  scheduler,
		ignore:     ignore,
		maxURLs:    maxURLs,
		logger:     log,
	}
}

// Process handles one authenticated event_callback envelope. It returns as
// soon as the event is deduplicated and classified; extraction, summarizing
// and delivery continue in the background.
func (s *Service) Process(ctx context.Context, env *slack.InboundEnvelope) Outcome {
	ctx = logging.WithEventID(ctx, env.EventID)

	if env.EventID != "" && s.dedup != nil {
		seen, err := s.dedup.CheckAndMark(ctx, env.EventID)
		if err != nil {
			s.logger.ErrorwCtx(ctx, "Dedup check failed, skipping event", "error", err)
			return OutcomeSkipped
		}
		if seen {
			s.logger.DebugwCtx(ctx, "Duplicate delivery, already processed")
			return OutcomeDuplicate
		}
	}

	event := env.Event
	if reason := s.skipReason(ctx, event); reason != "" {
		s.logger.DebugwCtx(ctx, "Event skipped", "reason", reason)
		return OutcomeSkipped
	}

	s.spawn(env.EventID, event)
	return OutcomeAccepted
}

// skipReason returns a non-empty reason when the event is not worth
// processing. Skips are silent toward the caller; none of them are errors.
func (s *Service) skipReason(ctx context.Context, event *slack.MessageEvent) string {
	switch {
	case event == nil:
		return "no event payload"
	case event.Type != slack.EventTypeMessage &&
		event.Type != slack.EventTypeAppMention &&
		event.Type != slack.EventTypeLinkShared:
		return "unsupported event type"
	case event.IsBot():
		return "bot-originated message"
	case event.IsEdit():
		return "message edit"
	case event.Channel == "":
		return "no channel"
	case event.ReplyThread() == "":
		return "no message timestamp"
	case s.ignore != nil && s.ignore.Matches(ctx, event):
		return "ignore rule matched"
	}
	return ""
}

// spawn runs the slow half of the pipeline under a supervisor so a panic
// takes down one event, not the process.
func (s *Service) spawn(eventID string, event *slack.MessageEvent) {
	// Fresh context: the webhook request is acked before this work runs, and
	// its deadline must not cancel the continuation.
	ctx := context.Background()
	ctx = logging.WithEventID(ctx, eventID)
	ctx = logging.WithChannel(ctx, event.Channel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.ErrorwCtx(ctx, "Panic in event continuation", "panic", r)
			}
		}()

		s.continueEvent(ctx, event)
	}()
}

func (s *Service) continueEvent(ctx context.Context, event *slack.MessageEvent) {
	urls := extract.FromEvent(event, s.maxURLs)
	metrics.ExtractedURLsPerEvent.Observe(float64(len(urls)))

	if len(urls) == 0 {
		s.logger.DebugwCtx(ctx, "No URLs in event, nothing to summarize")
		return
	}

	s.logger.InfowCtx(ctx, "Summarizing event URLs", "url_count", len(urls))

	summary, err := s.summarizer.Summarize(ctx, urls)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Summarizer failed", "error", err)
		s.apologize(event, err)
		return
	}

	s.deliver(event, summary)
}

// apologize tells the channel the summary is not coming, through the same
// paced delivery path as a real summary. Unreachable pages get a specific
// message; anything else stays generic.
func (s *Service) apologize(event *slack.MessageEvent, cause error) {
	text := apologyGeneric
	if errors.Is(cause, summarize.ErrAllFetchesFailed) {
		text = apologyUnreachable
	}

	thread := event.ReplyThread()
	s.scheduler.Schedule(event.Channel, func(ctx context.Context) error {
		return s.poster.PostMessage(ctx, slack.PostMessageRequest{
			Channel:         event.Channel,
			Text:            text,
			ThreadTimestamp: thread,
		})
	})
}

// deliver queues the summary reply and, when present, the translation
// follow-up. Both target the same destination, so FIFO ordering guarantees
// the summary lands first.
func (s *Service) deliver(event *slack.MessageEvent, summary *summarize.Summary) {
	thread := event.ReplyThread()

	s.scheduler.Schedule(event.Channel, func(ctx context.Context) error {
		return s.poster.PostMessage(ctx, slack.PostMessageRequest{
			Channel:         event.Channel,
			Text:            "*Summary*\n" + summary.Text,
			ThreadTimestamp: thread,
			ReplyBroadcast:  true,
		})
	})

	if summary.Translation != "" {
		s.scheduler.Schedule(event.Channel, func(ctx context.Context) error {
			return s.poster.PostMessage(ctx, slack.PostMessageRequest{
				Channel:         event.Channel,
				Text:            "*Translation*\n" + summary.Translation,
				ThreadTimestamp: thread,
			})
		})
	}
}

// Drain blocks until all in-flight continuations have finished. Used on
// shutdown, before the delivery scheduler is stopped.
func (s *Service) Drain() {
	s.wg.Wait()
}
