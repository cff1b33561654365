package importer

// State is the phase of an import run.
type State int32

const (
	StateIdle State = iota
	StateFetchingManifest
	StateFetchingPayload
	StateWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetchingManifest:
		return "fetching_manifest"
	case StateFetchingPayload:
		return "fetching_payload"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen in this run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
