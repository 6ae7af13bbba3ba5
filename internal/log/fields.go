package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldOwner       = "owner"
	FieldEntryID     = "entry_id"
	FieldEntryKind   = "kind"
	FieldAmountCents = "amount_cents"
	FieldWalletID    = "wallet_id"
	FieldGoalID      = "goal_id"
	FieldTag         = "tag"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldEventID     = "event_id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentEngine  = "engine"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentMirror  = "mirror"
)

// Operations defines standard operation names
const (
	OpAppend   = "append"
	OpEdit     = "edit"
	OpRemove   = "remove"
	OpQuery    = "query"
	OpProject  = "project"
	OpAllocate = "allocate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
