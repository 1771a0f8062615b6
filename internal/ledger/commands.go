package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandKind tags a command message on the wire.
type CommandKind string

const (
	CmdAddProduct            CommandKind = "addProduct"
	CmdUpdateProduct         CommandKind = "updateProduct"
	CmdDeleteProduct         CommandKind = "deleteProduct"
	CmdDestroyProduct        CommandKind = "destroyProduct"
	CmdAddContainer          CommandKind = "addContainer"
	CmdUpdateContainer       CommandKind = "updateContainer"
	CmdDeleteContainer       CommandKind = "deleteContainer"
	CmdAdjustContainerPrices CommandKind = "adjustContainerPrices"
	CmdAddSale               CommandKind = "addSale"
	CmdDeleteSale            CommandKind = "deleteSale"
	CmdAddExpense            CommandKind = "addExpense"
	CmdDeleteExpense         CommandKind = "deleteExpense"
	CmdAddPartner            CommandKind = "addPartner"
	CmdUpdatePartner         CommandKind = "updatePartner"
	CmdDeletePartner         CommandKind = "deletePartner"
	CmdAddWithdrawal         CommandKind = "addWithdrawal"
	CmdDeleteWithdrawal      CommandKind = "deleteWithdrawal"
	CmdAddCashInjection      CommandKind = "addCashInjection"
	CmdUpdateCashInjection   CommandKind = "updateCashInjection"
	CmdDeleteCashInjection   CommandKind = "deleteCashInjection"
	CmdFixMalformedIDs       CommandKind = "fixMalformedIds"
	CmdLoadData              CommandKind = "loadData"
)

// Command is a tagged message applied to the ledger by Apply.
type Command interface {
	CommandKind() CommandKind
}

// AddProduct registers a new product with empty stock.
type AddProduct struct {
	Name      string  `json:"name" validate:"required"`
	Category  string  `json:"category"`
	BagWeight float64 `json:"bagWeight" validate:"gt=0"`
}

// UpdateProduct edits descriptive fields; stock and cost only move
// through container and sale commands.
type UpdateProduct struct {
	ID        int     `json:"id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Category  string  `json:"category"`
	BagWeight float64 `json:"bagWeight" validate:"gt=0"`
}

// DeleteProduct removes a product nothing references.
type DeleteProduct struct {
	ID int `json:"id" validate:"required"`
}

// DestroyProduct writes off stock and records a Loss/Damage expense
// valued at the landed cost per bag.
type DestroyProduct struct {
	ID       int    `json:"id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
	Note     string `json:"note"`
}

// AddContainer books a shipment in: stock up, weighted-average cost
// recomputed per line.
type AddContainer struct {
	Supplier     string          `json:"supplier"`
	Lines        []ContainerLine `json:"lines" validate:"required,min=1,dive"`
	ShippingCost float64         `json:"shippingCost" validate:"gte=0"`
	CustomsCost  float64         `json:"customsCost" validate:"gte=0"`
	ArrivedAt    time.Time       `json:"arrivedAt"`
}

// UpdateContainer replaces a container's lines and costs, reverting
// its prior contribution first.
type UpdateContainer struct {
	ID           string          `json:"id" validate:"required"`
	Supplier     string          `json:"supplier"`
	Lines        []ContainerLine `json:"lines" validate:"required,min=1,dive"`
	ShippingCost float64         `json:"shippingCost" validate:"gte=0"`
	CustomsCost  float64         `json:"customsCost" validate:"gte=0"`
}

// DeleteContainer removes a shipment; refused when its products have
// sale history or the revert would project negative stock.
type DeleteContainer struct {
	ID string `json:"id" validate:"required"`
}

// PriceCorrection is one corrected cost inside AdjustContainerPrices.
type PriceCorrection struct {
	ProductID    int     `json:"productId" validate:"required"`
	NewCostPerKg float64 `json:"newCostPerKg" validate:"gte=0"`
}

// AdjustContainerPrices retroactively corrects recorded costs on a
// container, nudging current product cost proportionally.
type AdjustContainerPrices struct {
	ContainerID string            `json:"containerId" validate:"required"`
	Corrections []PriceCorrection `json:"corrections" validate:"required,min=1,dive"`
}

// AddSale sells bags at the current landed cost basis.
type AddSale struct {
	ProductID    int       `json:"productId" validate:"required"`
	Quantity     int       `json:"quantity" validate:"gt=0"`
	PricePerUnit float64   `json:"pricePerUnit" validate:"gte=0"`
	SoldAt       time.Time `json:"soldAt"`
}

// DeleteSale restores the sold quantity; cost is left alone.
type DeleteSale struct {
	ID int `json:"id" validate:"required"`
}

// AddExpense records money out, independent of stock.
type AddExpense struct {
	Category string    `json:"category" validate:"required"`
	Amount   float64   `json:"amount" validate:"gt=0"`
	Note     string    `json:"note"`
	Date     time.Time `json:"date"`
}

// DeleteExpense removes an expense and its cash flow.
type DeleteExpense struct {
	ID int `json:"id" validate:"required"`
}

// AddPartner opens a capital account seeded with the initial investment.
type AddPartner struct {
	Name              string  `json:"name" validate:"required"`
	InitialInvestment float64 `json:"initialInvestment" validate:"gte=0"`
}

// UpdatePartner edits the partner's name and profit share.
type UpdatePartner struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	ProfitShare float64 `json:"profitShare"`
}

// DeletePartner removes a partner nothing references.
type DeletePartner struct {
	ID string `json:"id" validate:"required"`
}

// AddWithdrawal takes money out of a partner's capital account.
type AddWithdrawal struct {
	PartnerID string  `json:"partnerId" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0"`
	Note      string  `json:"note"`
}

// DeleteWithdrawal reverses a withdrawal, flooring totalWithdrawn at 0.
type DeleteWithdrawal struct {
	ID string `json:"id" validate:"required"`
}

// AddCashInjection books incoming money; capital contributions also
// raise the partner's capital account.
type AddCashInjection struct {
	Type      CashInjectionType `json:"type" validate:"required"`
	Amount    float64           `json:"amount" validate:"gt=0"`
	PartnerID string            `json:"partnerId"`
	Note      string            `json:"note"`
}

// UpdateCashInjection rewrites an injection, reversing the old capital
// effect before applying the new one.
type UpdateCashInjection struct {
	ID        string            `json:"id" validate:"required"`
	Type      CashInjectionType `json:"type" validate:"required"`
	Amount    float64           `json:"amount" validate:"gt=0"`
	PartnerID string            `json:"partnerId"`
	Note      string            `json:"note"`
}

// DeleteCashInjection removes an injection, reversing any capital effect.
type DeleteCashInjection struct {
	ID string `json:"id" validate:"required"`
}

// FixMalformedIDs is the one-shot identifier migration.
type FixMalformedIDs struct{}

// LoadData replaces the whole ledger with a snapshot from the
// persistence collaborator.
type LoadData struct {
	Snapshot Snapshot `json:"snapshot"`
}

func (AddProduct) CommandKind() CommandKind            { return CmdAddProduct }
func (UpdateProduct) CommandKind() CommandKind         { return CmdUpdateProduct }
func (DeleteProduct) CommandKind() CommandKind         { return CmdDeleteProduct }
func (DestroyProduct) CommandKind() CommandKind        { return CmdDestroyProduct }
func (AddContainer) CommandKind() CommandKind          { return CmdAddContainer }
func (UpdateContainer) CommandKind() CommandKind       { return CmdUpdateContainer }
func (DeleteContainer) CommandKind() CommandKind       { return CmdDeleteContainer }
func (AdjustContainerPrices) CommandKind() CommandKind { return CmdAdjustContainerPrices }
func (AddSale) CommandKind() CommandKind               { return CmdAddSale }
func (DeleteSale) CommandKind() CommandKind            { return CmdDeleteSale }
func (AddExpense) CommandKind() CommandKind            { return CmdAddExpense }
func (DeleteExpense) CommandKind() CommandKind         { return CmdDeleteExpense }
func (AddPartner) CommandKind() CommandKind            { return CmdAddPartner }
func (UpdatePartner) CommandKind() CommandKind         { return CmdUpdatePartner }
func (DeletePartner) CommandKind() CommandKind         { return CmdDeletePartner }
func (AddWithdrawal) CommandKind() CommandKind         { return CmdAddWithdrawal }
func (DeleteWithdrawal) CommandKind() CommandKind      { return CmdDeleteWithdrawal }
func (AddCashInjection) CommandKind() CommandKind      { return CmdAddCashInjection }
func (UpdateCashInjection) CommandKind() CommandKind   { return CmdUpdateCashInjection }
func (DeleteCashInjection) CommandKind() CommandKind   { return CmdDeleteCashInjection }
func (FixMalformedIDs) CommandKind() CommandKind       { return CmdFixMalformedIDs }
func (LoadData) CommandKind() CommandKind              { return CmdLoadData }

// DecodeCommand turns a tagged wire message into a typed command.
func DecodeCommand(kind CommandKind, payload json.RawMessage) (Command, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	decode := func(cmd Command) (Command, error) {
		if err := json.Unmarshal(payload, cmd); err != nil {
			return nil, invalidErr("payload", err)
		}
		return cmd, nil
	}
	switch kind {
	case CmdAddProduct:
		return decode(&AddProduct{})
	case CmdUpdateProduct:
		return decode(&UpdateProduct{})
	case CmdDeleteProduct:
		return decode(&DeleteProduct{})
	case CmdDestroyProduct:
		return decode(&DestroyProduct{})
	case CmdAddContainer:
		return decode(&AddContainer{})
	case CmdUpdateContainer:
		return decode(&UpdateContainer{})
	case CmdDeleteContainer:
		return decode(&DeleteContainer{})
	case CmdAdjustContainerPrices:
		return decode(&AdjustContainerPrices{})
	case CmdAddSale:
		return decode(&AddSale{})
	case CmdDeleteSale:
		return decode(&DeleteSale{})
	case CmdAddExpense:
		return decode(&AddExpense{})
	case CmdDeleteExpense:
		return decode(&DeleteExpense{})
	case CmdAddPartner:
		return decode(&AddPartner{})
	case CmdUpdatePartner:
		return decode(&UpdatePartner{})
	case CmdDeletePartner:
		return decode(&DeletePartner{})
	case CmdAddWithdrawal:
		return decode(&AddWithdrawal{})
	case CmdDeleteWithdrawal:
		return decode(&DeleteWithdrawal{})
	case CmdAddCashInjection:
		return decode(&AddCashInjection{})
	case CmdUpdateCashInjection:
		return decode(&UpdateCashInjection{})
	case CmdDeleteCashInjection:
		return decode(&DeleteCashInjection{})
	case CmdFixMalformedIDs:
		return &FixMalformedIDs{}, nil
	case CmdLoadData:
		return decode(&LoadData{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, kind)
	}
}
