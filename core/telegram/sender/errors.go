package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/m3rciful/refbot/core/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	tokenRe      = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	statusSuffix = regexp.MustCompile(`\((\d{3})\)\s*$`)
)

// classifyError buckets err into a short kind for logs.
func classifyError(err error) string {
	if err == nil {
		return ""
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return "dial"
	}
	var alert tls.AlertError
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &alert) || errors.As(err, &certErr) {
		return "tls"
	}
	switch code := apiStatus(err); {
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// transient reports whether repeating the call may succeed.
func transient(err error) bool {
	return netutil.ShouldRetry(err) || apiStatus(err) >= 500
}

func floodWait(err error) (time.Duration, bool) {
	var flood tele.FloodError
	if !errors.As(err, &flood) {
		return 0, false
	}
	return time.Duration(flood.RetryAfter) * time.Second, true
}

// apiStatus extracts the Bot API status code carried by err, or 0.
func apiStatus(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return http.StatusTooManyRequests
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}
	if m := statusSuffix.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// sanitizeErrorMessage masks bot tokens that the HTTP client embeds in request URLs.
func sanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
