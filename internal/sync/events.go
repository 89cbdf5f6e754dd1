package sync

// EventKind classifies where in a sync run an event was emitted.
type EventKind string

const (
	// EventPage marks page-boundary activity (request, retry, end of listing).
	EventPage EventKind = "page"
	// EventItem marks a per-item decision (imported, updated, skipped).
	EventItem EventKind = "item"
	// EventInfo is general engine activity.
	EventInfo EventKind = "info"
	// EventComplete is the final summary.
	EventComplete EventKind = "complete"
)

// Severity grades an event for the attached presentation layer.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is one structured progress notification. The engine has no UI
// concerns; whatever is attached (CLI printer, server-push encoder) renders
// these.
type Event struct {
	Kind     EventKind
	Severity Severity
	Message  string
	// Count is the running imported+updated total, when relevant.
	Count int
}

// ProgressFunc receives progress events during a sync run. May be nil.
type ProgressFunc func(Event)
