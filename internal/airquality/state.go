package airquality

// Phase is the active variant of a LoadState.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseLoading
	PhaseReady
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadState is a tagged variant over NotStarted, Loading, Ready(Snapshot) and
// Failed(Message). Generation identifies the load sequence that produced it.
type LoadState struct {
	Phase      Phase
	Generation uint64
	// Snapshot is set only when Phase is PhaseReady.
	Snapshot *Snapshot
	// Message is set only when Phase is PhaseFailed. It never contains
	// upstream error text.
	Message string

	cause error
}

// Cause returns the diagnostic error behind a failed state.
func (s LoadState) Cause() error {
	return s.cause
}

// Settled reports whether s is Ready or Failed.
func (s LoadState) Settled() bool {
	return s.Phase == PhaseReady || s.Phase == PhaseFailed
}

// EventKind names a state machine input.
type EventKind int

const (
	EventStarted EventKind = iota
	EventSucceeded
	EventFailed
)

// Event is an input to Reduce.
type Event struct {
	Kind       EventKind
	Generation uint64
	Snapshot   *Snapshot
	Err        error
}

// Started is emitted when a load sequence begins.
func Started(gen uint64) Event {
	return Event{Kind: EventStarted, Generation: gen}
}

// Succeeded is emitted when a load sequence resolves with a snapshot.
func Succeeded(gen uint64, snap Snapshot) Event {
	return Event{Kind: EventSucceeded, Generation: gen, Snapshot: &snap}
}

// Failed is emitted when a load sequence resolves with an error.
func Failed(gen uint64, err error) Event {
	return Event{Kind: EventFailed, Generation: gen, Err: err}
}

// Reduce is the pure transition function of the load state machine.
//
// A start event only applies if its generation is newer than the current one.
// A resolution only applies to a Loading state of the same generation, which
// makes settled states terminal and discards responses from superseded
// sequences.
func Reduce(cur LoadState, ev Event) LoadState {
	switch ev.Kind {
	case EventStarted:
		if cur.Phase != PhaseNotStarted && ev.Generation <= cur.Generation {
			return cur
		}
		return LoadState{Phase: PhaseLoading, Generation: ev.Generation}
	case EventSucceeded:
		if cur.Phase != PhaseLoading || ev.Generation != cur.Generation || ev.Snapshot == nil {
			return cur
		}
		return LoadState{Phase: PhaseReady, Generation: ev.Generation, Snapshot: ev.Snapshot}
	case EventFailed:
		if cur.Phase != PhaseLoading || ev.Generation != cur.Generation {
			return cur
		}
		return LoadState{Phase: PhaseFailed, Generation: ev.Generation, Message: FailureMessage, cause: ev.Err}
	default:
		return cur
	}
}
