package updater

// Outcome classifies a single synchronization run
type Outcome int

const (
	// Skipped means the run made no attempt: outside a repository root,
	// inside the debounce window, or degraded after a resolution failure
	// with no bundle installed yet.
	Skipped Outcome = iota
	// Installed means a bundle was installed for the first time. In a
	// hook-context run the caller must re-dispatch: the freshly installed
	// hook has not run for the current git operation.
	Installed
	// Updated means a stale bundle was replaced with the resolved version
	Updated
	// UpToDate means the installed bundle already matches the source
	UpToDate
	// Failed means the run itself could not be carried out at all
	Failed
)

// String returns the human-readable outcome name
func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Installed:
		return "installed"
	case Updated:
		return "updated"
	case UpToDate:
		return "up-to-date"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of one Updater.Run call
type Result struct {
	Outcome Outcome
	// Version is the bundle version after the run, empty when no bundle is
	// installed.
	Version string
	// Reason is a short human-readable explanation for Skipped and degraded
	// outcomes.
	Reason string
}
