package rma

import "fmt"

// Outcome is the disposition set on a return order line item.
// The integer codes mirror the host application's ReturnOrderLineStatus values.
type Outcome int

// Return order line outcome codes
const (
	OutcomePending Outcome = 10
	OutcomeReturn  Outcome = 20
	OutcomeRepair  Outcome = 30
	OutcomeReplace Outcome = 40
	OutcomeRefund  Outcome = 50
	OutcomeReject  Outcome = 60
)

var outcomeNames = map[Outcome]string{
	OutcomePending: "Pending",
	OutcomeReturn:  "Return",
	OutcomeRepair:  "Repair",
	OutcomeReplace: "Replace",
	OutcomeRefund:  "Refund",
	OutcomeReject:  "Reject",
}

// String returns the human-readable outcome name
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("#%d", int(o))
}

// IsValid returns true if the outcome is one of the known codes
func (o Outcome) IsValid() bool {
	_, ok := outcomeNames[o]
	return ok
}

// IsActionable returns true if the outcome drives completion processing.
// Pending lines are skipped: the line was never dispositioned.
func (o Outcome) IsActionable() bool {
	return o.IsValid() && o != OutcomePending
}

// StockStatus is the status code of a stock item.
// The integer codes mirror the host application's StockStatus values.
type StockStatus int

// Stock item status codes
const (
	StockStatusOK          StockStatus = 10
	StockStatusAttention   StockStatus = 50
	StockStatusDamaged     StockStatus = 55
	StockStatusDestroyed   StockStatus = 60
	StockStatusRejected    StockStatus = 65
	StockStatusLost        StockStatus = 70
	StockStatusQuarantined StockStatus = 75
	StockStatusReturned    StockStatus = 85
)

var stockStatusNames = map[StockStatus]string{
	StockStatusOK:          "OK",
	StockStatusAttention:   "Attention",
	StockStatusDamaged:     "Damaged",
	StockStatusDestroyed:   "Destroyed",
	StockStatusRejected:    "Rejected",
	StockStatusLost:        "Lost",
	StockStatusQuarantined: "Quarantined",
	StockStatusReturned:    "Returned",
}

// String returns the human-readable status name
func (s StockStatus) String() string {
	if name, ok := stockStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("#%d", int(s))
}

// IsValid returns true if the status is one of the known codes
func (s StockStatus) IsValid() bool {
	_, ok := stockStatusNames[s]
	return ok
}
