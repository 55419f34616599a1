package shared

// Ledger permissions.
const (
	PermLedgerView          = "ledger.view"
	PermLedgerExport        = "ledger.export"
	PermLedgerVoucherEdit   = "ledger.voucher.edit"
	PermLedgerVoucherPost   = "ledger.voucher.post"
	PermLedgerVoucherCancel = "ledger.voucher.cancel"
	PermLedgerVoucherDelete = "ledger.voucher.delete"
	PermLedgerVoucherPurge  = "ledger.voucher.purge"
	PermLedgerJobs          = "ledger.jobs"
)

// LedgerScopes lists all permissions related to the voucher ledger.
func LedgerScopes() []string {
	return []string{
		PermLedgerView,
		PermLedgerExport,
		PermLedgerVoucherEdit,
		PermLedgerVoucherPost,
		PermLedgerVoucherCancel,
		PermLedgerVoucherDelete,
		PermLedgerVoucherPurge,
		PermLedgerJobs,
	}
}

// DefaultOperatorScopes is granted when a request carries no explicit scopes.
// Purge and jobs are not included.
func DefaultOperatorScopes() []string {
	return []string{
		PermLedgerView,
		PermLedgerExport,
		PermLedgerVoucherEdit,
		PermLedgerVoucherPost,
		PermLedgerVoucherCancel,
		PermLedgerVoucherDelete,
	}
}
