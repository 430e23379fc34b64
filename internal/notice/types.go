package notice

import (
	"context"
	"time"
)

type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is one transient message. ID, At and Timeout are filled on enqueue
// when zero.
type Notice struct {
	ID      string        `json:"id"`
	Kind    Kind          `json:"kind"`
	Text    string        `json:"text"`
	At      time.Time     `json:"at"`
	Timeout time.Duration `json:"timeout"`
}

// Sink shows a notice to the user.
type Sink interface {
	ShowNotice(ctx context.Context, n Notice) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notice) error

func (f SinkFunc) ShowNotice(ctx context.Context, n Notice) error { return f(ctx, n) }

// Config controls the notice pipeline.
type Config struct {
	Enabled         bool
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	DedupWindow     time.Duration
	DedupMaxEntries int
	DisplayTimeout  time.Duration
	HistorySize     int
}

type HistoryItem struct {
	ID   string    `json:"id"`
	At   time.Time `json:"at"`
	Kind Kind      `json:"kind"`
	Text string    `json:"text"`
}

// Event is the bus payload for notice lifecycle events.
type Event struct {
	ID    string    `json:"id"`
	Kind  Kind      `json:"kind"`
	Text  string    `json:"text"`
	Key   string    `json:"key"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}
