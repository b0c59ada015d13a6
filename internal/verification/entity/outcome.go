package entity

// Outcome is the result of a single verification attempt.
type Outcome int8

const (
	// OutcomeRejected covers wrong, expired and replayed codes alike.
	OutcomeRejected Outcome = 0
	// OutcomeAccepted means the code matched a bucket and was claimed.
	OutcomeAccepted Outcome = 1
)

func NewOutcome(valid bool) Outcome {
	if valid {
		return OutcomeAccepted
	}
	return OutcomeRejected
}

func (o Outcome) Valid() bool {
	return o == OutcomeAccepted
}

func (o Outcome) String() string {
	if o == OutcomeAccepted {
		return "accepted"
	}
	return "rejected"
}
