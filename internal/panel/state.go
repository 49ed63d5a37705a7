package panel

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// AddStep is the position in the panel's add flow
type AddStep int

// Add flow steps. The panel first picks the line being repaired, then
// searches stock for the part, then enters the quantity.
const (
	StepIdle AddStep = iota
	StepPickLine
	StepPickPart
	StepQuantity
)

// AddForm is the in-progress allocation the add flow builds up.
// Validation mirrors the server-side constraints so the panel can reject
// bad input before the round trip.
type AddForm struct {
	LineID      uuid.UUID `validate:"required"`
	StockItemID uuid.UUID `validate:"required"`
	Quantity    float64   `validate:"required,gt=0"`
	Notes       string    `validate:"max=500"`
}

// PanelState is the rendering-agnostic state of the repair parts panel.
// A UI layer reads the fields after each mutation; the panel never retries
// on its own, the user triggers a reload.
type PanelState struct {
	OrderID     uuid.UUID
	Allocations []AllocationView
	Lines       []LineView

	Step          AddStep
	Form          AddForm
	SearchResults []StockView

	// Err holds the inline error from the last failed operation. Cleared by
	// the next successful one.
	Err string

	api      API
	validate *validator.Validate
}

// NewPanelState creates the panel state for a return order
func NewPanelState(api API, orderID uuid.UUID) *PanelState {
	return &PanelState{
		OrderID:  orderID,
		Step:     StepIdle,
		api:      api,
		validate: validator.New(),
	}
}

// Load fetches the order's allocations and lines. On failure the previous
// state is kept and Err is set.
func (p *PanelState) Load(ctx context.Context) error {
	allocations, err := p.api.ListAllocations(ctx, p.OrderID)
	if err != nil {
		p.Err = err.Error()
		return err
	}
	lines, err := p.api.OrderLines(ctx, p.OrderID)
	if err != nil {
		p.Err = err.Error()
		return err
	}

	p.Allocations = allocations
	p.Lines = lines
	p.Err = ""
	return nil
}

// StartAdd begins the add flow
func (p *PanelState) StartAdd() {
	p.Step = StepPickLine
	p.Form = AddForm{}
	p.SearchResults = nil
	p.Err = ""
}

// CancelAdd abandons the add flow
func (p *PanelState) CancelAdd() {
	p.Step = StepIdle
	p.Form = AddForm{}
	p.SearchResults = nil
}

// PickLine selects the return order line being repaired and advances to the
// part search step. Unknown line IDs are rejected.
func (p *PanelState) PickLine(lineID uuid.UUID) bool {
	if p.Step != StepPickLine {
		return false
	}
	for _, line := range p.Lines {
		if line.ID == lineID {
			p.Form.LineID = lineID
			p.Step = StepPickPart
			p.Err = ""
			return true
		}
	}
	p.Err = "unknown return order line"
	return false
}

// SearchParts queries stock for the part picker. On failure the previous
// results are kept and Err is set.
func (p *PanelState) SearchParts(ctx context.Context, query string) error {
	if p.Step != StepPickPart {
		return nil
	}
	results, err := p.api.SearchStock(ctx, query)
	if err != nil {
		p.Err = err.Error()
		return err
	}
	p.SearchResults = results
	p.Err = ""
	return nil
}

// PickStock selects the repair part and advances to the quantity step.
// The item must come from the current search results.
func (p *PanelState) PickStock(stockItemID uuid.UUID) bool {
	if p.Step != StepPickPart {
		return false
	}
	for _, item := range p.SearchResults {
		if item.ID == stockItemID {
			p.Form.StockItemID = stockItemID
			p.Step = StepQuantity
			p.Err = ""
			return true
		}
	}
	p.Err = "pick a part from the search results"
	return false
}

// Submit validates the form, creates the allocation and reloads the list.
// Validation or API failure keeps the flow open so the user can correct
// and resubmit.
func (p *PanelState) Submit(ctx context.Context, quantity float64, notes string) error {
	if p.Step != StepQuantity {
		return nil
	}
	p.Form.Quantity = quantity
	p.Form.Notes = notes

	if err := p.validate.Struct(p.Form); err != nil {
		p.Err = "quantity must be positive and notes at most 500 characters"
		return err
	}

	_, err := p.api.CreateAllocation(ctx, CreateAllocation{
		LineID:      p.Form.LineID,
		StockItemID: p.Form.StockItemID,
		Quantity:    p.Form.Quantity,
		Notes:       p.Form.Notes,
	})
	if err != nil {
		p.Err = err.Error()
		return err
	}

	p.CancelAdd()
	return p.Load(ctx)
}

// Delete removes an allocation and reloads the list. Consumed allocations
// are rejected locally before the round trip.
func (p *PanelState) Delete(ctx context.Context, id uuid.UUID) error {
	for _, a := range p.Allocations {
		if a.ID == id && a.Consumed {
			p.Err = "consumed allocations cannot be removed"
			return nil
		}
	}

	if err := p.api.DeleteAllocation(ctx, id); err != nil {
		p.Err = err.Error()
		return err
	}
	return p.Load(ctx)
}
