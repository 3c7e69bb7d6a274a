package backend

import (
	"context"
	"sync"
)

// Doer performs one backend call. *Client implements it.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Result is the (data, error, tag) triple of a settled call.
type Result struct {
	Tag  string
	Data []byte
	Err  error
}

// Slot is the state of one operation tag.
type Slot struct {
	Result
	Loading bool
}

type slot struct {
	seq     uint64
	loading bool
	result  Result
	done    chan struct{}
}

// Hook runs backend calls asynchronously and routes each completion to the
// slot of its operation tag. Only the most recent call fired for a tag may
// settle that tag; older completions are discarded. Independent Hooks share
// nothing.
type Hook struct {
	doer Doer

	mu     sync.Mutex
	slots  map[string]*slot
	latest Result
	wg     sync.WaitGroup
}

// NewHook creates a hook over d.
func NewHook(d Doer) *Hook {
	return &Hook{
		doer:  d,
		slots: make(map[string]*slot),
	}
}

// Fire starts req in the background and marks its tag as loading.
func (h *Hook) Fire(ctx context.Context, req Request) {
	h.mu.Lock()
	s, ok := h.slots[req.Tag]
	if !ok {
		s = &slot{}
		h.slots[req.Tag] = s
	}
	s.seq++
	seq := s.seq
	if !s.loading {
		s.loading = true
		s.done = make(chan struct{})
	}
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		resp, err := h.doer.Do(ctx, req)
		res := Result{Tag: req.Tag, Err: err}
		if resp != nil {
			res.Data = resp.Body
		}
		h.complete(seq, res)
	}()
}

func (h *Hook) complete(seq uint64, res Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.slots[res.Tag]
	if s == nil || seq != s.seq {
		return
	}
	s.loading = false
	s.result = res
	h.latest = res
	close(s.done)
}

// Latest returns the most recently settled triple across all tags.
func (h *Hook) Latest() Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// State returns the slot for tag. ok is false if nothing was ever fired for it.
func (h *Hook) State(tag string) (Slot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.slots[tag]
	if !ok {
		return Slot{}, false
	}
	return Slot{Result: s.result, Loading: s.loading}, true
}

// Loading reports whether any call is still outstanding.
func (h *Hook) Loading() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.slots {
		if s.loading {
			return true
		}
	}
	return false
}

// Wait blocks until tag settles or ctx is done. Waiting on a tag that was
// never fired returns an empty result immediately.
func (h *Hook) Wait(ctx context.Context, tag string) (Result, error) {
	h.mu.Lock()
	s, ok := h.slots[tag]
	if !ok || !s.loading {
		var res Result
		if ok {
			res = s.result
		}
		h.mu.Unlock()
		return res, nil
	}
	done := s.done
	h.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return Result{Tag: tag}, ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return s.result, nil
}

// Drain waits for every goroutine started by Fire to return.
func (h *Hook) Drain() {
	h.wg.Wait()
}

// ListOf decodes a settled result as a list response.
func ListOf[T any](res Result) ([]T, error) {
	if res.Err != nil {
		return nil, res.Err
	}
	return DecodeList[T](res.Data)
}
