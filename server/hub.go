package server

import (
	"sync"

	"wastegrid/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// hub multicasts the root view's updates to every connected client. Each
// subscriber holds at most one pending batch; a batch that finds the slot
// full is dropped, which is safe since every batch describes the full view.
type hub struct {
	mu   sync.Mutex
	subs map[chan []fastview.EleUpdate]struct{}
}

func newHub() *hub {
	return &hub{subs: map[chan []fastview.EleUpdate]struct{}{}}
}

// subscribe returns a channel of updates and the func to release it.
func (h *hub) subscribe() (<-chan []fastview.EleUpdate, func()) {
	ch := make(chan []fastview.EleUpdate, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// run forwards updates until the source closes or done is closed, then closes
// every subscriber.
func (h *hub) run(
	done <-chan struct{},
	updates <-chan []fastview.EleUpdate,
) {
	for batch := range channerics.OrDone(done, updates) {
		h.mu.Lock()
		for ch := range h.subs {
			select {
			case ch <- batch:
			default:
			}
		}
		h.mu.Unlock()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
