package screen

import "sync"

// Level is the severity of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message about the outcome of an operation.
type Notice struct {
	Level   Level
	Op      string // operation tag, e.g. "createBanque"
	Message string
}

// Notifier receives notices from screens.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discard struct{}

func (discard) Notify(Notice) {}

// Outbox buffers notices until the HTTP layer drains them into toasts.
type Outbox struct {
	mu      sync.Mutex
	notices []Notice
}

func (o *Outbox) Notify(n Notice) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notices = append(o.notices, n)
}

// Drain returns and clears the buffered notices, oldest first.
func (o *Outbox) Drain() []Notice {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.notices
	o.notices = nil
	return out
}

// Len returns the number of buffered notices.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.notices)
}
