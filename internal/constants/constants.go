package constants

import "time"

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixEvent = "event:"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultDedupTTLSeconds    = 3600
	DefaultMaxURLs            = 20
	DefaultMinIntervalMillis  = 1000
	DefaultReplayWindowSecs   = 300
	DefaultSummarizerTimeout  = 60 * time.Second
	DefaultPostTimeout        = 10 * time.Second
	DefaultFetchTimeout       = 60 * time.Second
	DefaultQueueMaxAge        = 10 * time.Minute
	DefaultJanitorInterval    = 5 * time.Minute
	DefaultTargetLanguage     = "ja"
	DefaultSlackAPIBaseURL    = "https://slack.com/api"
	DefaultSummarizerEndpoint = "https://api.openai.com/v1"
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	SignatureVersion = "v0"

	HeaderRequestTimestamp = "X-Slack-Request-Timestamp"
	HeaderSignature        = "X-Slack-Signature"
	HeaderSkipVerification = "X-Linksum-Skip-Verification"
)
