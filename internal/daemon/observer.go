package daemon

import (
	"sync/atomic"

	"github.com/taylen/verso/pkg/connection"
)

// observerRelay forwards session events to a target installed after
// construction. Events arriving before the target is set are dropped,
// which is safe: no session can open before the daemon finishes wiring.
type observerRelay struct {
	target atomic.Value
}

func (r *observerRelay) Set(target connection.Observer) {
	r.target.Store(&target)
}

func (r *observerRelay) StateChanged(id string, state connection.State) {
	if t, ok := r.target.Load().(*connection.Observer); ok {
		(*t).StateChanged(id, state)
	}
}

func (r *observerRelay) Received(id string, payload string) {
	if t, ok := r.target.Load().(*connection.Observer); ok {
		(*t).Received(id, payload)
	}
}
