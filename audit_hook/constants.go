package audithook

// Action constants for audit events.
const (
	// Instrument actions
	ActionInstrumentRegistered    = "instrument.registered"
	ActionInstrumentStatusChanged = "instrument.status_changed"

	// Balance actions
	ActionDeposit = "balance.deposit"

	// Transaction actions
	ActionPurchase        = "purchase.completed"
	ActionRentalStarted   = "rental.started"
	ActionRentalExtended  = "rental.extended"
	ActionRentalReturned  = "rental.returned"
	ActionRefundProcessed = "refund.processed"
	ActionRentalsOverdue  = "rental.overdue_sweep"
)

// Resource constants for audit events.
const (
	ResourceInstrument  = "instrument"
	ResourceBalance     = "balance"
	ResourceTransaction = "transaction"
)

// Category constants for audit events.
const (
	CategoryCatalogue = "catalogue"
	CategoryFunds     = "funds"
	CategoryRental    = "rental"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
