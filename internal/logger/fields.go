package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain.
const (
	// FieldRequestID is the per-execute request ID (UUID).
	FieldRequestID = "request_id"

	// FieldBatchID is the batch run ID (UUID), shared by every item of a run.
	FieldBatchID = "batch_id"

	// FieldComponent is the SDK component name (client, batch, request, auth).
	FieldComponent = "component"

	// FieldMethod is the HTTP method of the call.
	FieldMethod = "method"

	// FieldPath is the request path.
	FieldPath = "path"
)

// Standard metric fields, attached at the log site for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds.
	FieldDurationMs = "duration_ms"

	// FieldStatus is the HTTP status code or operation status.
	FieldStatus = "status"

	// FieldCount is a generic count field.
	FieldCount = "count"
)
