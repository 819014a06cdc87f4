package orchestrator

// State is a pipeline stage. A run moves forward through the states once
// and never revisits the branch decision.
type State int

const (
	StateStart State = iota
	StateClassifying
	StateRewriting
	StateRetrievingLocal
	StateSynthesizingLocal
	StateRetrievingWeb
	StateFiltering
	StateSynthesizingWeb
	StateValidating
	StateDone
)

var stateNames = [...]string{
	StateStart:             "START",
	StateClassifying:       "CLASSIFYING",
	StateRewriting:         "REWRITING",
	StateRetrievingLocal:   "RETRIEVING_LOCAL",
	StateSynthesizingLocal: "SYNTHESIZING_LOCAL",
	StateRetrievingWeb:     "RETRIEVING_WEB",
	StateFiltering:         "FILTERING",
	StateSynthesizingWeb:   "SYNTHESIZING_WEB",
	StateValidating:        "VALIDATING",
	StateDone:              "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}
