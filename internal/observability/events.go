package observability

// EventEnvelope is the wire shape of a published lifecycle event: a type for
// consumer routing, a name for the concrete occurrence and a free-form payload.
type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	Payload   any    `json:"payload"`
}

// BuildHeaders assembles the message headers that let consumers correlate an
// event with the originating request and trace. Empty values are omitted.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
