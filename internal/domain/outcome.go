package domain

type OutcomeStatus string

const (
	OutcomeFound    OutcomeStatus = "found"
	OutcomeNotFound OutcomeStatus = "not_found"
	OutcomeFailed   OutcomeStatus = "failed"
)

// ProviderOutcome is the result of one provider lookup. Scoring only cares
// whether a record exists; Reason is kept for logs and diagnostics.
type ProviderOutcome struct {
	Status  OutcomeStatus
	record  *ProviderRecord
	Reason  string
	Timeout bool
}

func Found(record ProviderRecord) ProviderOutcome {
	return ProviderOutcome{Status: OutcomeFound, record: &record}
}

func NotFound(reason string) ProviderOutcome {
	return ProviderOutcome{Status: OutcomeNotFound, Reason: reason}
}

func Failed(reason string, timeout bool) ProviderOutcome {
	return ProviderOutcome{Status: OutcomeFailed, Reason: reason, Timeout: timeout}
}

// Record returns the record for a Found outcome and nil otherwise.
func (o ProviderOutcome) Record() *ProviderRecord {
	if o.Status != OutcomeFound {
		return nil
	}
	return o.record
}
