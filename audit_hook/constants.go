package audithook

// Action constants for audit events.
const (
	// Invoice actions
	ActionInvoiceCreated   = "invoice.created"
	ActionInvoicePaid      = "invoice.paid"
	ActionInvoiceCancelled = "invoice.cancelled"

	// Escrow actions
	ActionEscrowFunded      = "escrow.funded"
	ActionMilestoneReleased = "escrow.milestone_released"

	// Lottery actions
	ActionPoolCreated  = "lottery.pool_created"
	ActionPoolSeeded   = "lottery.pool_seeded"
	ActionPoolToggled  = "lottery.pool_toggled"
	ActionEntryCreated = "lottery.entry_created"
	ActionLotteryWon   = "lottery.won"
	ActionLotteryLost  = "lottery.lost"

	// Profile actions
	ActionProfileCreated = "profile.created"

	// Failures
	ActionOperationFailed = "operation.failed"
)

// Resource constants for audit events.
const (
	ResourceInvoice = "invoice"
	ResourceEscrow  = "escrow"
	ResourcePool    = "lottery_pool"
	ResourceEntry   = "lottery_entry"
	ResourceProfile = "profile"
)

// Category constants for audit events.
const (
	CategoryBilling = "billing"
	CategoryPayment = "payment"
	CategoryLottery = "lottery"
	CategoryAccount = "account"
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
)
