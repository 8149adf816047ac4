package message

// DispatchData is the request payload dictionary carried alongside a
// message. Serialization of its contents is explicitly out of scope
// (spec.md §1); it is modeled here as an opaque key/value map, the shape
// the route-message-handler contract (spec.md §6) expects to read and
// write without the router itself interpreting it.
type DispatchData map[string]interface{}

// DispatchResult is the response payload dictionary.
type DispatchResult map[string]interface{}

// RouteMessage pairs a Message with either a DispatchData (request) or a
// DispatchResult (response), per spec.md §3. T is constrained to the two
// payload shapes the router ever carries.
type RouteMessage[T DispatchData | DispatchResult] struct {
	Msg *Message
	Val T
}

// IsDefault reports whether rm is the unset zero value: no message, no
// dispatch payload. Used by HandleResult's invariant.
func (rm RouteMessage[T]) IsDefault() bool {
	return rm.Msg == nil && len(rm.Val) == 0
}

// HandleResult is the route-message-handler's verdict: whether it took
// responsibility for the message, and if so, what it produced.
//
// Invariant (spec.md §3): Handled == false implies RouteMessage is the
// zero value.
type HandleResult struct {
	RouteMessage RouteMessage[DispatchResult]
	Handled      bool
}

// Unhandled is the canonical "I didn't handle this" result.
var Unhandled = HandleResult{}

// Handled builds a HandleResult reporting success with the given result
// message.
func Handled(rm RouteMessage[DispatchResult]) HandleResult {
	return HandleResult{RouteMessage: rm, Handled: true}
}
