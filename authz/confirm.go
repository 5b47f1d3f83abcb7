package authz

import "context"

// Action is the user's answer to a confirmation round-trip.
type Action int

const (
	ActionApprove Action = iota
	ActionReject
	ActionAbort
)

// Response carries the confirmation decision. Feedback is only meaningful
// for ActionReject; it is routed back into the conversation.
type Response struct {
	Action   Action
	Feedback string
}

// Confirmer is the UI collaborator handling confirmation round-trips.
// Confirm blocks until the user answers or the context is cancelled.
// It must render only the bounded preview of the request.
type Confirmer interface {
	Confirm(ctx context.Context, req *ConfirmationRequest) (Response, error)
}

// ApproveAll approves every request without interaction; useful in tests
// and non-interactive runs.
type ApproveAll struct{}

func (ApproveAll) Confirm(context.Context, *ConfirmationRequest) (Response, error) {
	return Response{Action: ActionApprove}, nil
}

var _ Confirmer = ApproveAll{}
