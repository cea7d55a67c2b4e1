package hunt

import "fmt"

// Status is the terminal state of one evaluation.
type Status int

// Evaluation outcomes.
const (
	Scored Status = iota + 1
	Duplicate
	NoSignal
	TimedOut
	ClaimLimitExceeded
)

var statusNames = map[Status]string{
	Scored:             "SCORED",
	Duplicate:          "DUPLICATE",
	NoSignal:           "NO_SIGNAL",
	TimedOut:           "TIMED_OUT",
	ClaimLimitExceeded: "CLAIM_LIMIT_EXCEEDED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalText renders the status name in JSON and logs.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for st, name := range statusNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// Outcome is what Evaluate reports. Points and Total are set only for Scored.
type Outcome struct {
	Status Status `json:"status"`
	Points int64  `json:"points,omitempty"`
	Total  int64  `json:"total,omitempty"`
}

// Score sums 2^i over the non-empty slots of the ordered triple (square-ish
// flag, symbolic value, geometric value): 1, 2 and 4 respectively.
func Score(slots [3]bool) int64 {
	var score int64
	for i, filled := range slots {
		if filled {
			score += 1 << i
		}
	}
	return score
}
