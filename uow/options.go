package uow

// SnapshotStrategy selects when a MANAGED entity's snapshot is captured.
type SnapshotStrategy string

const (
	// SnapshotEager captures a snapshot at every managed transition
	// (initial load, post-insert promotion, successful merge). Default.
	SnapshotEager SnapshotStrategy = "eager"
	// SnapshotDeferred captures the snapshot only on the first dirty check;
	// behaviorally identical to eager if no mutation intervenes first.
	SnapshotDeferred SnapshotStrategy = "deferred"
)

// Options holds the three configuration knobs named in the external
// interfaces design, plus the bounded transition-history retention the
// design notes leave open (resolved as a configurable cap, 0 = unbounded).
type Options struct {
	// FailOnCyclicDependency: true (default) raises CyclicDependency on a
	// cycle; false still raises it, but includes a best-effort partial
	// ordering of the acyclic portion in the error payload.
	FailOnCyclicDependency bool
	// SnapshotStrategy selects eager (default) or deferred snapshot capture.
	SnapshotStrategy SnapshotStrategy
	// StrictOperationValidation: true (default) makes the state validator
	// return false for unknown operation names; false makes it return true.
	StrictOperationValidation bool
	// MaxTransitionHistory caps the per-entity transition log length; 0
	// (default) means unbounded.
	MaxTransitionHistory int
}

// DefaultOptions returns the engine's documented defaults.
func DefaultOptions() Options {
	return Options{
		FailOnCyclicDependency:    true,
		SnapshotStrategy:          SnapshotEager,
		StrictOperationValidation: true,
		MaxTransitionHistory:      0,
	}
}
