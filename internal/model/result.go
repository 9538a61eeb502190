package model

// Outcome tags the business result of processing one job. Real failures
// (external calls blowing up, store errors) travel as plain errors instead.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeNotInCategory
	OutcomeDuplicate
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeNotInCategory:
		return "not-in-category"
	case OutcomeDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Result is what the processing pipeline hands back to the worker loop so
// it can branch explicitly instead of catching everything.
type Result struct {
	Outcome Outcome
	Reason  string
	Song    *AcceptedSong
}
