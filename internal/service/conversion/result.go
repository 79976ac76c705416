package conversion

// ResultCode classifies the business outcome of one webhook. The
// transport layer owns the mapping to HTTP statuses; everything in
// this package reasons in these codes only.
type ResultCode int

const (
	// ResultDispatched event submitted downstream successfully
	ResultDispatched ResultCode = iota + 1

	// ResultAccepted downstream submission failed; the webhook is
	// still acknowledged so the notifier does not retry indefinitely
	ResultAccepted

	// ResultSkipped trigger ignored by store configuration
	ResultSkipped

	// ResultTerminal order/cart already reached a terminal state
	ResultTerminal

	// ResultPrecondition missing required input or destination, or
	// unsupported resource/action
	ResultPrecondition

	// ResultUnauthenticated store has no valid storefront credentials
	ResultUnauthenticated

	// ResultNoConfig app data fetch returned nothing for the store
	ResultNoConfig

	// ResultInternalError anything unanticipated
	ResultInternalError
)

// String returns a stable label for metrics and audit rows
func (c ResultCode) String() string {
	switch c {
	case ResultDispatched:
		return "dispatched"
	case ResultAccepted:
		return "accepted"
	case ResultSkipped:
		return "skipped"
	case ResultTerminal:
		return "terminal"
	case ResultPrecondition:
		return "precondition"
	case ResultUnauthenticated:
		return "unauthenticated"
	case ResultNoConfig:
		return "no_config"
	case ResultInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Result outcome of one handled trigger
type Result struct {
	Code ResultCode

	// EventName set when an outbound event was built
	EventName string

	// Message carried by unauthenticated and internal error results
	Message string
}
