package ledger

import "fmt"

// Result reports what an accepted command produced.
type Result struct {
	Kind     CommandKind
	Entity   any // created or updated record, when the command yields one
	Repaired int // FixMalformedIDs only
}

// Apply is the single transition function: every mutation of the
// ledger goes through here. It clones the snapshot, applies the
// command and returns the new state; on rejection the returned
// snapshot is the input, untouched.
func Apply(s Snapshot, cmd Command) (Snapshot, Result, error) {
	if cmd == nil {
		return s, Result{}, invalid("command", "nil command")
	}
	next := s.Clone()
	result := Result{Kind: cmd.CommandKind()}
	var err error
	switch c := cmd.(type) {
	case *AddProduct:
		result.Entity, err = next.addProduct(*c)
	case *UpdateProduct:
		result.Entity, err = next.updateProduct(*c)
	case *DeleteProduct:
		err = next.deleteProduct(c.ID)
	case *DestroyProduct:
		result.Entity, err = next.destroyProduct(*c)
	case *AddContainer:
		result.Entity, err = next.addContainer(*c)
	case *UpdateContainer:
		result.Entity, err = next.updateContainer(*c)
	case *DeleteContainer:
		err = next.deleteContainer(c.ID)
	case *AdjustContainerPrices:
		result.Entity, err = next.adjustContainerPrices(*c)
	case *AddSale:
		result.Entity, err = next.addSale(*c)
	case *DeleteSale:
		err = next.deleteSale(c.ID)
	case *AddExpense:
		result.Entity, err = next.addExpense(*c)
	case *DeleteExpense:
		err = next.deleteExpense(c.ID)
	case *AddPartner:
		result.Entity, err = next.addPartner(*c)
	case *UpdatePartner:
		result.Entity, err = next.updatePartner(*c)
	case *DeletePartner:
		err = next.deletePartner(c.ID)
	case *AddWithdrawal:
		result.Entity, err = next.addWithdrawal(*c)
	case *DeleteWithdrawal:
		err = next.deleteWithdrawal(c.ID)
	case *AddCashInjection:
		result.Entity, err = next.addCashInjection(*c)
	case *UpdateCashInjection:
		result.Entity, err = next.updateCashInjection(*c)
	case *DeleteCashInjection:
		err = next.deleteCashInjection(c.ID)
	case *FixMalformedIDs:
		result.Repaired = next.fixMalformedIDs()
	case *LoadData:
		next = c.Snapshot.Clone()
		next.normalizeCounters()
		next.Metadata.Revision = s.Metadata.Revision
	default:
		err = fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
	if err != nil {
		return s, Result{Kind: result.Kind}, err
	}
	next.Metadata.Revision = s.Metadata.Revision + 1
	return next, result, nil
}
