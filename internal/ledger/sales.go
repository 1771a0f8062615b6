package ledger

import "time"

// addSale depletes stock and freezes the cost basis at the moment of
// sale: costPerUnit is the landed cost per bag right now, and later
// price adjustments never rewrite it.
func (s *Snapshot) addSale(cmd AddSale) (Sale, error) {
	pi := s.productIndex(cmd.ProductID)
	if pi < 0 {
		return Sale{}, invalidErr("productId", ErrProductNotFound)
	}
	if cmd.Quantity <= 0 {
		return Sale{}, invalid("quantity", "quantity must be positive")
	}
	if cmd.PricePerUnit < 0 {
		return Sale{}, invalid("pricePerUnit", "price must not be negative")
	}
	product := &s.Products[pi]
	if cmd.Quantity > product.CurrentStock {
		return Sale{}, invalidErr("quantity", ErrInsufficientStock)
	}
	soldAt := cmd.SoldAt
	if soldAt.IsZero() {
		soldAt = time.Now().UTC()
	}
	costPerUnit := product.CostPerKg * product.BagWeight
	sale := Sale{
		ID:           s.newSaleID(),
		ProductID:    cmd.ProductID,
		Quantity:     cmd.Quantity,
		PricePerUnit: cmd.PricePerUnit,
		TotalAmount:  cmd.PricePerUnit * float64(cmd.Quantity),
		CostPerUnit:  costPerUnit,
		Profit:       (cmd.PricePerUnit - costPerUnit) * float64(cmd.Quantity),
		SoldAt:       soldAt,
	}
	product.CurrentStock -= cmd.Quantity
	s.Sales = append(s.Sales, sale)
	s.appendCashFlow(FlowIn, sale.TotalAmount, KindSale, formatInt(sale.ID), soldAt)
	return sale, nil
}

// deleteSale puts the quantity back. The blended cost is not
// recomputed; editing a sale is delete-then-add.
func (s *Snapshot) deleteSale(id int) error {
	idx := s.saleIndex(id)
	if idx < 0 {
		return invalidErr("id", ErrSaleNotFound)
	}
	sale := s.Sales[idx]
	if pi := s.productIndex(sale.ProductID); pi >= 0 {
		s.Products[pi].CurrentStock += sale.Quantity
	}
	s.Sales = append(s.Sales[:idx], s.Sales[idx+1:]...)
	s.removeCashFlow(KindSale, formatInt(id))
	return nil
}
