package domain

import "time"

// SessionKind distinguishes a single-mode think session from a full
// parallel-reasoning session.
type SessionKind string

const (
	SessionThink            SessionKind = "think"
	SessionParallelReasoning SessionKind = "parallel_reasoning"
)

// SessionStatus is the lifecycle state of a Session.
type SessionStatus string

const (
	SessionProcessing SessionStatus = "processing"
	SessionComplete   SessionStatus = "complete"
	SessionError      SessionStatus = "error"
)

// SyncCheckpoints records, per checkpoint fraction, whether the Coordinator
// has observed every stream pass it.
type SyncCheckpoints struct {
	Pct25 bool
	Pct50 bool
	Pct75 bool
}

// Session is the shared record a Coordinator mutates and SSE/status
// consumers read, for either a think-session or a parallel-reasoning
// session.
type Session struct {
	ID              string
	Kind            SessionKind
	Status          SessionStatus
	Progress        float64
	Stage           string
	ActiveStreams   []StreamType
	StartedAt       time.Time
	CompletedAt     *time.Time
	Err             *Error
	SyncCheckpoints SyncCheckpoints
	Result          *SynthesizedResult
}
