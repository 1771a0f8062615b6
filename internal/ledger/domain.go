// Package ledger implements the authoritative state store for the
// business: inventory, weighted-average landed costs and partner
// capital, driven by a stream of commands.
package ledger

import "time"

// Kind identifies an entity family for id allocation.
type Kind string

const (
	KindProduct         Kind = "product"
	KindContainer       Kind = "container"
	KindSale            Kind = "sale"
	KindExpense         Kind = "expense"
	KindPartner         Kind = "partner"
	KindWithdrawal      Kind = "withdrawal"
	KindCashInjection   Kind = "cashInjection"
	KindCashFlow        Kind = "cashFlow"
	KindPriceAdjustment Kind = "priceAdjustment"
)

// ExpenseCategoryLoss is recorded automatically when stock is destroyed.
const ExpenseCategoryLoss = "Loss/Damage"

// Product tracks one stocked article counted in bags.
type Product struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	BagWeight    float64 `json:"bagWeight"`
	CostPerKg    float64 `json:"costPerKg"`
	CurrentStock int     `json:"currentStock"`
}

// ContainerLine is one product position inside a container. A line
// may name a product instead of referencing one, in which case the
// product is created on first reference.
type ContainerLine struct {
	ProductID   int     `json:"productId,omitempty"`
	ProductName string  `json:"productName,omitempty"`
	Category    string  `json:"category,omitempty"`
	BagQuantity int     `json:"bagQuantity"`
	CostPerKg   float64 `json:"costPerKg"`
	BagWeight   float64 `json:"bagWeight"`
}

// Container models one shipment contributing stock and cost.
type Container struct {
	ID            string          `json:"id"`
	Supplier      string          `json:"supplier,omitempty"`
	Lines         []ContainerLine `json:"lines"`
	ShippingCost  float64         `json:"shippingCost"`
	CustomsCost   float64         `json:"customsCost"`
	AdjustmentIDs []string        `json:"adjustmentIds,omitempty"`
	ArrivedAt     time.Time       `json:"arrivedAt"`
}

// TotalBags sums the bag quantity across all lines.
func (c Container) TotalBags() int {
	total := 0
	for _, line := range c.Lines {
		total += line.BagQuantity
	}
	return total
}

// Sale is a stock-depleting transaction with its cost frozen at sale time.
type Sale struct {
	ID           int       `json:"id"`
	ProductID    int       `json:"productId"`
	Quantity     int       `json:"quantity"`
	PricePerUnit float64   `json:"pricePerUnit"`
	TotalAmount  float64   `json:"totalAmount"`
	CostPerUnit  float64   `json:"costPerUnit"`
	Profit       float64   `json:"profit"`
	SoldAt       time.Time `json:"soldAt"`
}

// Expense is a money-out record independent of stock.
type Expense struct {
	ID       int       `json:"id"`
	Category string    `json:"category"`
	Amount   float64   `json:"amount"`
	Note     string    `json:"note,omitempty"`
	Date     time.Time `json:"date"`
}

// CapitalAccount records a partner's contributed capital.
type CapitalAccount struct {
	InitialInvestment       float64   `json:"initialInvestment"`
	AdditionalContributions []float64 `json:"additionalContributions,omitempty"`
	TotalWithdrawn          float64   `json:"totalWithdrawn"`
	ProfitShare             float64   `json:"profitShare"`
	CurrentEquity           float64   `json:"currentEquity"`
}

// Partner is a co-owner with a capital account.
type Partner struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Capital  CapitalAccount `json:"capitalAccount"`
	JoinedAt time.Time      `json:"joinedAt"`
}

// Withdrawal takes money out of a partner's capital account.
type Withdrawal struct {
	ID        string    `json:"id"`
	PartnerID string    `json:"partnerId"`
	Amount    float64   `json:"amount"`
	Note      string    `json:"note,omitempty"`
	Date      time.Time `json:"date"`
}

// CashInjectionType classifies incoming money.
type CashInjectionType string

const (
	InjectionCapitalContribution CashInjectionType = "Capital Contribution"
	InjectionLoan                CashInjectionType = "Loan"
	InjectionOtherIncome         CashInjectionType = "Other Income"
	InjectionOpeningBalance      CashInjectionType = "Opening Balance"
)

// Valid reports whether t is a known injection type.
func (t CashInjectionType) Valid() bool {
	switch t {
	case InjectionCapitalContribution, InjectionLoan, InjectionOtherIncome, InjectionOpeningBalance:
		return true
	}
	return false
}

// CashInjection is money entering the business. Only capital
// contributions touch a partner's capital account.
type CashInjection struct {
	ID        string            `json:"id"`
	Type      CashInjectionType `json:"type"`
	Amount    float64           `json:"amount"`
	PartnerID string            `json:"partnerId,omitempty"`
	Note      string            `json:"note,omitempty"`
	Date      time.Time         `json:"date"`
}

// FlowDirection marks a cash flow as money in or money out.
type FlowDirection string

const (
	FlowIn  FlowDirection = "in"
	FlowOut FlowDirection = "out"
)

// CashFlow is a bookkeeping record appended for every money-moving
// command and removed when its source record is deleted.
type CashFlow struct {
	ID         string        `json:"id"`
	Direction  FlowDirection `json:"direction"`
	Amount     float64       `json:"amount"`
	SourceKind Kind          `json:"sourceKind"`
	SourceID   string        `json:"sourceId"`
	Date       time.Time     `json:"date"`
}

// PriceAdjustment is the immutable audit record of a retroactive
// correction to a container's recorded cost per kg.
type PriceAdjustment struct {
	ID           string    `json:"id"`
	ContainerID  string    `json:"containerId"`
	ProductID    int       `json:"productId"`
	OldCostPerKg float64   `json:"oldCostPerKg"`
	NewCostPerKg float64   `json:"newCostPerKg"`
	CostDelta    float64   `json:"costDelta"`
	AdjustedAt   time.Time `json:"adjustedAt"`
}

// Metadata carries the id counters and the snapshot revision.
type Metadata struct {
	NextIDs  map[Kind]int `json:"nextIds"`
	Revision int64        `json:"revision"`
}

// Snapshot is the complete ledger state tree. Commands never mutate a
// snapshot in place; Apply clones first.
type Snapshot struct {
	Products         []Product         `json:"products"`
	Containers       []Container       `json:"containers"`
	Sales            []Sale            `json:"sales"`
	Expenses         []Expense         `json:"expenses"`
	Partners         []Partner         `json:"partners"`
	Withdrawals      []Withdrawal      `json:"withdrawals"`
	CashInjections   []CashInjection   `json:"cashInjections"`
	CashFlows        []CashFlow        `json:"cashFlows"`
	PriceAdjustments []PriceAdjustment `json:"priceAdjustments"`
	Metadata         Metadata          `json:"metadata"`
}

// NewSnapshot returns the empty ledger with every counter at 1.
func NewSnapshot() Snapshot {
	return Snapshot{Metadata: Metadata{NextIDs: newCounters()}}
}

func newCounters() map[Kind]int {
	return map[Kind]int{
		KindProduct:         1,
		KindContainer:       1,
		KindSale:            1,
		KindExpense:         1,
		KindPartner:         1,
		KindWithdrawal:      1,
		KindCashInjection:   1,
		KindCashFlow:        1,
		KindPriceAdjustment: 1,
	}
}

// Clone deep-copies the snapshot so a transition never aliases the
// previous state.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Products = append([]Product(nil), s.Products...)
	out.Containers = make([]Container, len(s.Containers))
	for i, c := range s.Containers {
		c.Lines = append([]ContainerLine(nil), c.Lines...)
		c.AdjustmentIDs = append([]string(nil), c.AdjustmentIDs...)
		out.Containers[i] = c
	}
	out.Sales = append([]Sale(nil), s.Sales...)
	out.Expenses = append([]Expense(nil), s.Expenses...)
	out.Partners = make([]Partner, len(s.Partners))
	for i, p := range s.Partners {
		p.Capital.AdditionalContributions = append([]float64(nil), p.Capital.AdditionalContributions...)
		out.Partners[i] = p
	}
	out.Withdrawals = append([]Withdrawal(nil), s.Withdrawals...)
	out.CashInjections = append([]CashInjection(nil), s.CashInjections...)
	out.CashFlows = append([]CashFlow(nil), s.CashFlows...)
	out.PriceAdjustments = append([]PriceAdjustment(nil), s.PriceAdjustments...)
	out.Metadata.NextIDs = make(map[Kind]int, len(s.Metadata.NextIDs))
	for k, v := range s.Metadata.NextIDs {
		out.Metadata.NextIDs[k] = v
	}
	return out
}

func (s *Snapshot) productIndex(id int) int {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) containerIndex(id string) int {
	for i := range s.Containers {
		if s.Containers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) saleIndex(id int) int {
	for i := range s.Sales {
		if s.Sales[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) expenseIndex(id int) int {
	for i := range s.Expenses {
		if s.Expenses[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) partnerIndex(id string) int {
	for i := range s.Partners {
		if s.Partners[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) withdrawalIndex(id string) int {
	for i := range s.Withdrawals {
		if s.Withdrawals[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Snapshot) cashInjectionIndex(id string) int {
	for i := range s.CashInjections {
		if s.CashInjections[i].ID == id {
			return i
		}
	}
	return -1
}

// salesForProduct lists sale ids referencing the product.
func (s *Snapshot) salesForProduct(productID int) []string {
	var ids []string
	for i := range s.Sales {
		if s.Sales[i].ProductID == productID {
			ids = append(ids, formatInt(s.Sales[i].ID))
		}
	}
	return ids
}
