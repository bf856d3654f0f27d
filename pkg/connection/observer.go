package connection

// Observer receives asynchronous session events, addressed by session id.
// Callbacks are invoked from pump goroutines and from the operation that
// discovered a failure; implementations must be safe for concurrent use.
type Observer interface {
	// StateChanged reports one lifecycle transition for a session.
	StateChanged(id string, state State)
	// Received delivers one inbound payload for a session.
	Received(id string, payload string)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil
// functions are ignored.
type ObserverFuncs struct {
	OnStateChanged func(id string, state State)
	OnReceived     func(id string, payload string)
}

func (o ObserverFuncs) StateChanged(id string, state State) {
	if o.OnStateChanged != nil {
		o.OnStateChanged(id, state)
	}
}

func (o ObserverFuncs) Received(id string, payload string) {
	if o.OnReceived != nil {
		o.OnReceived(id, payload)
	}
}

// MultiObserver fans every event out to all wrapped observers, in order.
type MultiObserver []Observer

func (m MultiObserver) StateChanged(id string, state State) {
	for _, o := range m {
		o.StateChanged(id, state)
	}
}

func (m MultiObserver) Received(id string, payload string) {
	for _, o := range m {
		o.Received(id, payload)
	}
}
