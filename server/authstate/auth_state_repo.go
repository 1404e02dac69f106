package authstate

import "time"

// FlowState tracks an in-flight OAuth authorization round trip, keyed by the
// state parameter sent to the external provider.
type FlowState struct {
	Provider  string
	ReturnURL string
	CreatedAt time.Time
}

type Repo interface {
	Upsert(state string, flowState *FlowState) error
	Take(state string) (*FlowState, error)
}
