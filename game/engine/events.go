package engine

// EventType identifies what happened inside an engine
type EventType string

const (
	EventInvalidMove    EventType = "invalid_move"
	EventMoveExecuted   EventType = "move_executed"
	EventStateChanged   EventType = "state_changed"
	EventGameEnded      EventType = "game_ended"
	EventStateCorrupted EventType = "state_corrupted"
)

// Event is delivered to listeners synchronously on the caller's goroutine
type Event struct {
	Type EventType
	// Move is the move that triggered the event, if any
	Move *Move
	// Reason explains invalid moves, recoveries and corruption
	Reason string
	Err    error
	// Recovered is set on an invalid-move event produced by a rollback
	Recovered bool
	// State is a snapshot taken after the change
	State  *GameState
	Result *GameResult
}

// Listener receives engine events
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(Event)

// OnEvent calls f(e)
func (f ListenerFunc) OnEvent(e Event) { f(e) }

type listenerEntry struct {
	id       int
	listener Listener
}

// Subscribe registers l and returns a function that removes it again.
// Listeners are called in registration order.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.nextListenerID++
	id := e.nextListenerID
	e.listeners = append(e.listeners, listenerEntry{id: id, listener: l})
	return func() {
		for i, entry := range e.listeners {
			if entry.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) emit(ev Event) {
	for _, entry := range e.listeners {
		entry.listener.OnEvent(ev)
	}
}
