package rma

// StatusMapping maps a return line outcome to the stock status applied at
// order completion. An absent entry means the outcome causes no status change.
type StatusMapping map[Outcome]StockStatus

// DefaultStatusMapping returns the built-in outcome-to-status table:
//
//	Return  -> OK         (ready to go back to the customer)
//	Repair  -> OK         (repaired and ready)
//	Replace -> Attention  (original item needs review)
//	Refund  -> Attention  (item needs review)
//	Reject  -> Rejected
func DefaultStatusMapping() StatusMapping {
	return StatusMapping{
		OutcomeReturn:  StockStatusOK,
		OutcomeRepair:  StockStatusOK,
		OutcomeReplace: StockStatusAttention,
		OutcomeRefund:  StockStatusAttention,
		OutcomeReject:  StockStatusRejected,
	}
}

// Resolve returns the target stock status for an outcome. The second return
// value is false when the outcome is unmapped, unknown or pending, meaning
// the stock item keeps its current status.
func (m StatusMapping) Resolve(outcome Outcome) (StockStatus, bool) {
	if !outcome.IsActionable() {
		return 0, false
	}
	status, ok := m[outcome]
	return status, ok
}
