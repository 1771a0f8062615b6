package ledger

import (
	"fmt"
	"time"
)

func (s *Snapshot) addProduct(cmd AddProduct) (Product, error) {
	if cmd.Name == "" {
		return Product{}, invalid("name", "name required")
	}
	if cmd.BagWeight <= 0 {
		return Product{}, invalid("bagWeight", "bag weight must be positive")
	}
	product := Product{
		ID:        s.newProductID(),
		Name:      cmd.Name,
		Category:  cmd.Category,
		BagWeight: cmd.BagWeight,
	}
	s.Products = append(s.Products, product)
	return product, nil
}

func (s *Snapshot) updateProduct(cmd UpdateProduct) (Product, error) {
	idx := s.productIndex(cmd.ID)
	if idx < 0 {
		return Product{}, invalidErr("id", ErrProductNotFound)
	}
	if cmd.Name == "" {
		return Product{}, invalid("name", "name required")
	}
	if cmd.BagWeight <= 0 {
		return Product{}, invalid("bagWeight", "bag weight must be positive")
	}
	product := &s.Products[idx]
	product.Name = cmd.Name
	product.Category = cmd.Category
	product.BagWeight = cmd.BagWeight
	return *product, nil
}

// deleteProduct refuses while sales or container lines reference the
// product; a product with trade history is never hard-deleted.
func (s *Snapshot) deleteProduct(id int) error {
	idx := s.productIndex(id)
	if idx < 0 {
		return invalidErr("id", ErrProductNotFound)
	}
	var offenders []string
	for _, saleID := range s.salesForProduct(id) {
		offenders = append(offenders, "sale "+saleID)
	}
	for _, c := range s.Containers {
		for _, line := range c.Lines {
			if line.ProductID == id {
				offenders = append(offenders, "container "+c.ID)
				break
			}
		}
	}
	if len(offenders) > 0 {
		return &IntegrityGuardError{Op: "deleteProduct", Reason: "product is still referenced", Offenders: offenders}
	}
	s.Products = append(s.Products[:idx], s.Products[idx+1:]...)
	return nil
}

// destroyProduct writes stock off and books the loss as an expense at
// the landed cost per bag.
func (s *Snapshot) destroyProduct(cmd DestroyProduct) (Expense, error) {
	idx := s.productIndex(cmd.ID)
	if idx < 0 {
		return Expense{}, invalidErr("id", ErrProductNotFound)
	}
	if cmd.Quantity <= 0 {
		return Expense{}, invalid("quantity", "quantity must be positive")
	}
	product := &s.Products[idx]
	if cmd.Quantity > product.CurrentStock {
		return Expense{}, invalidErr("quantity", ErrInsufficientStock)
	}
	product.CurrentStock -= cmd.Quantity
	lossValue := float64(cmd.Quantity) * product.CostPerKg * product.BagWeight
	if lossValue <= 0 {
		// Nothing to book when the stock carried no cost basis.
		return Expense{}, nil
	}
	note := cmd.Note
	if note == "" {
		note = fmt.Sprintf("destroyed %d bags of %s", cmd.Quantity, product.Name)
	}
	return s.addExpense(AddExpense{
		Category: ExpenseCategoryLoss,
		Amount:   lossValue,
		Note:     note,
	})
}

func (s *Snapshot) addExpense(cmd AddExpense) (Expense, error) {
	if cmd.Category == "" {
		return Expense{}, invalid("category", "category required")
	}
	if cmd.Amount <= 0 {
		return Expense{}, invalid("amount", "amount must be positive")
	}
	date := cmd.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	expense := Expense{
		ID:       s.newExpenseID(),
		Category: cmd.Category,
		Amount:   cmd.Amount,
		Note:     cmd.Note,
		Date:     date,
	}
	s.Expenses = append(s.Expenses, expense)
	s.appendCashFlow(FlowOut, cmd.Amount, KindExpense, formatInt(expense.ID), date)
	return expense, nil
}

func (s *Snapshot) deleteExpense(id int) error {
	idx := s.expenseIndex(id)
	if idx < 0 {
		return invalidErr("id", ErrExpenseNotFound)
	}
	s.Expenses = append(s.Expenses[:idx], s.Expenses[idx+1:]...)
	s.removeCashFlow(KindExpense, formatInt(id))
	return nil
}
