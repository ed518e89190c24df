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
	FieldMonth       = "month"
	FieldPeriod      = "period"
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldAccount     = "account"
	FieldAmountCents = "amount_cents"
	FieldTxID        = "transaction_id"
)

// Components defines standard component names
const (
	ComponentApp           = "app"
	ComponentHTTP          = "http"
	ComponentLedger        = "ledger"
	ComponentCheckout      = "checkout"
	ComponentClosing       = "closing"
	ComponentReimbursement = "reimbursement"
	ComponentStorage       = "storage"
	ComponentAMQP          = "amqp"
	ComponentWorker        = "worker"
	ComponentSheets        = "sheets"
	ComponentBackend       = "backend"
	ComponentTrace         = "trace"
)
