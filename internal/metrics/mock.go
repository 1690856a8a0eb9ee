package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	eventsApplied       int
	eventsReversed      int
	suspiciousScores    int
	txRetries           int
	txFailures          int
	streakPromotions    int
	backfillRuns        int
	backfillDocsWritten int
	applyDurations      []float64
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		applyDurations: make([]float64, 0),
	}
}

func (m *Mock) IncEventsApplied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsApplied++
}

func (m *Mock) IncEventsReversed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventsReversed++
}

func (m *Mock) IncSuspiciousScores() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspiciousScores++
}

func (m *Mock) IncTxRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txRetries++
}

func (m *Mock) IncTxFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txFailures++
}

func (m *Mock) AddStreakPromotions(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streakPromotions += count
}

func (m *Mock) IncBackfillRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfillRuns++
}

func (m *Mock) AddBackfillDocsWritten(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backfillDocsWritten += count
}

func (m *Mock) ObserveApplyDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyDurations = append(m.applyDurations, duration)
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// EventsApplied returns the number of times IncEventsApplied was called.
func (m *Mock) EventsApplied() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsApplied
}

// EventsReversed returns the number of times IncEventsReversed was called.
func (m *Mock) EventsReversed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eventsReversed
}

// SuspiciousScores returns the number of times IncSuspiciousScores was called.
func (m *Mock) SuspiciousScores() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspiciousScores
}

// TxRetries returns the number of times IncTxRetries was called.
func (m *Mock) TxRetries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txRetries
}

// TxFailures returns the number of times IncTxFailures was called.
func (m *Mock) TxFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txFailures
}

// StreakPromotions returns the accumulated promotion count.
func (m *Mock) StreakPromotions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streakPromotions
}

// BackfillDocsWritten returns the accumulated written-document count.
func (m *Mock) BackfillDocsWritten() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backfillDocsWritten
}
