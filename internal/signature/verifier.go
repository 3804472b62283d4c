package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"linksum/internal/constants"
)

// Verifier authenticates webhook deliveries against the shared signing
// secret using the v0 signing scheme: HMAC-SHA256 over
// "v0:{timestamp}:{body}", hex encoded, prefixed "v0=".
type Verifier struct {
	secret string
	window time.Duration
	now    func() time.Time
}

func NewVerifier(secret string, window time.Duration) *Verifier {
	if window <= 0 {
		window = constants.DefaultReplayWindowSecs * time.Second
	}
	return &Verifier{
		secret: secret,
		window: window,
		now:    time.Now,
	}
}

// Verify reports whether the request is authentic. It never panics;
// any malformed input is a rejection.
func (v *Verifier) Verify(timestamp, sig string, body []byte) bool {
	ok, _ := v.VerifyWithReason(timestamp, sig, body)
	return ok
}

// VerifyWithReason additionally returns a diagnostic reason on rejection.
// The reason is for logs only and must never reach the HTTP response.
func (v *Verifier) VerifyWithReason(timestamp, sig string, body []byte) (bool, string) {
	if v.secret == "" {
		return false, "signing secret not configured"
	}
	if timestamp == "" {
		return false, "missing timestamp header"
	}
	if sig == "" {
		return false, "missing signature header"
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false, "malformed timestamp header"
	}

	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.window || age < -v.window {
		return false, "timestamp outside replay window"
	}

	expected := Compute(v.secret, timestamp, body)

	// hmac.Equal is constant-time; an attacker learns nothing from how
	// far the comparison got.
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return false, "signature mismatch"
	}

	return true, ""
}

// Compute builds the v0 signature for a timestamp and raw body.
func Compute(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(constants.SignatureVersion))
	mac.Write([]byte(":"))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(":"))
	mac.Write(body)
	return constants.SignatureVersion + "=" + hex.EncodeToString(mac.Sum(nil))
}
