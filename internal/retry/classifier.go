package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/snowflakedb/gosnowflake"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// Snowflake error numbers worth another attempt.
const (
	sfCodeServiceUnavailable = 260007 // driver: service unavailable
	sfCodeFailedToConnect    = 260008 // driver: failed to connect
	sfCodeSessionExpired     = 390112 // server: session no longer exists
	sfCodeTokenExpired       = 390114 // server: authentication token has expired
)

// Login rejections arrive with a connection-class SQLSTATE but never succeed on retry.
const (
	sfCodeIncorrectCredentials = 390100
	sfCodeUserLocked           = 390102
	sfCodeJWTInvalid           = 390144
)

// SnowflakeErrorClassifier decides which driver and network errors are transient.
type SnowflakeErrorClassifier struct{}

// NewSnowflakeErrorClassifier creates a new Snowflake error classifier.
func NewSnowflakeErrorClassifier() *SnowflakeErrorClassifier {
	return &SnowflakeErrorClassifier{}
}

// IsTransient reports whether err is temporary and the operation may be retried.
// Cancellation and deadline errors are never transient.
func (c *SnowflakeErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) {
		return isTransientSnowflakeError(sfErr)
	}

	return isNetworkError(err) || hasTransientMessage(err)
}

func isTransientSnowflakeError(e *gosnowflake.SnowflakeError) bool {
	switch e.Number {
	case sfCodeIncorrectCredentials, sfCodeUserLocked, sfCodeJWTInvalid:
		return false
	}

	// Class 08 - connection exception
	if strings.HasPrefix(e.SQLState, "08") {
		return true
	}

	switch e.Number {
	case sfCodeServiceUnavailable, sfCodeFailedToConnect,
		sfCodeSessionExpired, sfCodeTokenExpired:
		return true
	}

	return hasTransientMessage(e)
}

func isNetworkError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		for _, errno := range []syscall.Errno{
			syscall.ECONNREFUSED,
			syscall.ECONNRESET,
			syscall.ENETUNREACH,
			syscall.EHOSTUNREACH,
		} {
			if errors.Is(opErr.Err, errno) {
				return true
			}
		}
	}

	return false
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"i/o timeout",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"tls handshake timeout",
	"service unavailable",
	"too many requests",
	"unexpected eof",
}

func hasTransientMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

var _ sfdeploy.ErrorClassifier = (*SnowflakeErrorClassifier)(nil)
