package httpexec

import (
	"time"

	"github.com/sirupsen/logrus"

	"burstfire/internal/core"
)

const maxBodyLogSize = 1024

// DebugLogger logs request/response traffic at debug level. A nil
// DebugLogger discards everything, so call sites need no guards.
type DebugLogger struct {
	log *logrus.Logger
}

func NewDebugLogger(log *logrus.Logger) *DebugLogger {
	return &DebugLogger{log: log}
}

func (d *DebugLogger) LogRequest(slot core.TargetSlot, method, url string, body []byte) {
	if d == nil {
		return
	}
	d.log.WithFields(logrus.Fields{
		"slot": slot,
		"body": truncateBody(body),
	}).Debugf(">>> %s %s", method, url)
}

func (d *DebugLogger) LogResponse(slot core.TargetSlot, status int, body []byte, latency time.Duration) {
	if d == nil {
		return
	}
	d.log.WithFields(logrus.Fields{
		"slot":    slot,
		"status":  status,
		"latency": latency,
		"body":    truncateBody(body),
	}).Debug("<<< response")
}

func (d *DebugLogger) LogError(slot core.TargetSlot, err error, latency time.Duration) {
	if d == nil {
		return
	}
	d.log.WithFields(logrus.Fields{
		"slot":    slot,
		"latency": latency,
	}).Debugf("<<< error: %v", err)
}

func truncateBody(body []byte) string {
	if len(body) > maxBodyLogSize {
		return string(body[:maxBodyLogSize]) + "... (truncated)"
	}
	return string(body)
}
