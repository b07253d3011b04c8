package router

import (
	"sync"

	"newsbrief/internal/core"
	"newsbrief/internal/logger"
)

// UsageSink receives usage rows for durable storage. internal/store
// provides the sqlite one.
type UsageSink interface {
	AppendUsage(rec core.APIUsageRecord) error
}

// UsageLog is the append-only API usage log. A single mutex serializes
// appends so concurrent article tasks never interleave rows; existing
// rows are never mutated.
type UsageLog struct {
	mu      sync.Mutex
	records []core.APIUsageRecord
	sink    UsageSink // may be nil
}

// NewUsageLog creates a usage log. sink may be nil for in-memory only.
func NewUsageLog(sink UsageSink) *UsageLog {
	return &UsageLog{sink: sink}
}

// Append records one provider attempt. Persistence failures are logged
// and do not fail the attempt.
func (l *UsageLog) Append(rec core.APIUsageRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, rec)
	if l.sink != nil {
		if err := l.sink.AppendUsage(rec); err != nil {
			logger.Warn("failed to persist usage record", "provider", rec.Provider, "error", err.Error())
		}
	}
}

// Records returns a copy of all rows appended so far.
func (l *UsageLog) Records() []core.APIUsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]core.APIUsageRecord, len(l.records))
	copy(out, l.records)
	return out
}
