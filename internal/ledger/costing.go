package ledger

import (
	"fmt"
	"sort"
	"time"
)

// addContainer books a shipment: stock up per line, weighted-average
// landed cost recomputed with shipping and customs overhead allocated
// per bag across the whole container.
func (s *Snapshot) addContainer(cmd AddContainer) (Container, error) {
	container := Container{
		Supplier:     cmd.Supplier,
		Lines:        append([]ContainerLine(nil), cmd.Lines...),
		ShippingCost: cmd.ShippingCost,
		CustomsCost:  cmd.CustomsCost,
		ArrivedAt:    cmd.ArrivedAt,
	}
	if container.ArrivedAt.IsZero() {
		container.ArrivedAt = time.Now().UTC()
	}
	if err := s.validateLines(container.Lines); err != nil {
		return Container{}, err
	}
	container.ID = s.newContainerID()
	s.applyContainer(&container)
	s.Containers = append(s.Containers, container)
	return container, nil
}

// updateContainer must land on the same state as delete-then-recreate.
// The revert half is not an exact inverse of weighted averaging: stock
// comes back out, and the cost is only reset when the reverted stock
// hits zero, otherwise the pre-edit average stands as an approximation.
// Kept behind this one operation so a lot-based costing model can
// replace it without touching callers.
func (s *Snapshot) updateContainer(cmd UpdateContainer) (Container, error) {
	idx := s.containerIndex(cmd.ID)
	if idx < 0 {
		return Container{}, invalidErr("id", ErrContainerNotFound)
	}
	lines := append([]ContainerLine(nil), cmd.Lines...)
	if err := s.validateLines(lines); err != nil {
		return Container{}, err
	}
	old := s.Containers[idx]
	if offenders := s.projectedNegative(old, lines); len(offenders) > 0 {
		return Container{}, &IntegrityGuardError{
			Op:        "updateContainer",
			Reason:    "edit would drive stock negative",
			Offenders: offenders,
		}
	}
	s.revertContainer(old)
	updated := Container{
		ID:            old.ID,
		Supplier:      cmd.Supplier,
		Lines:         lines,
		ShippingCost:  cmd.ShippingCost,
		CustomsCost:   cmd.CustomsCost,
		AdjustmentIDs: old.AdjustmentIDs,
		ArrivedAt:     old.ArrivedAt,
	}
	s.applyContainer(&updated)
	s.Containers[idx] = updated
	return updated, nil
}

// deleteContainer refuses when a line product has sale history or the
// revert would project negative stock. On success only stock moves;
// the blended cost is deliberately left alone.
func (s *Snapshot) deleteContainer(id string) error {
	idx := s.containerIndex(id)
	if idx < 0 {
		return invalidErr("id", ErrContainerNotFound)
	}
	container := s.Containers[idx]
	var withSales []string
	// A product may appear on more than one line; the revert removes
	// them all at once, so the guard has to check the summed quantity.
	removed := map[int]int{}
	for _, line := range container.Lines {
		if ids := s.salesForProduct(line.ProductID); len(ids) > 0 && removed[line.ProductID] == 0 {
			withSales = append(withSales, fmt.Sprintf("product %d (sales %v)", line.ProductID, ids))
		}
		removed[line.ProductID] += line.BagQuantity
	}
	var negative []string
	for productID, quantity := range removed {
		pi := s.productIndex(productID)
		if pi >= 0 && s.Products[pi].CurrentStock-quantity < 0 {
			negative = append(negative, fmt.Sprintf("product %d", productID))
		}
	}
	sort.Strings(negative)
	if len(withSales) > 0 {
		return &IntegrityGuardError{Op: "deleteContainer", Reason: "products have sale history", Offenders: withSales}
	}
	if len(negative) > 0 {
		return &IntegrityGuardError{Op: "deleteContainer", Reason: "delete would drive stock negative", Offenders: negative}
	}
	for _, line := range container.Lines {
		pi := s.productIndex(line.ProductID)
		if pi < 0 {
			continue
		}
		s.Products[pi].CurrentStock -= line.BagQuantity
	}
	s.Containers = append(s.Containers[:idx], s.Containers[idx+1:]...)
	return nil
}

// adjustContainerPrices corrects a container's recorded cost per kg
// after the fact. The product's current cost moves by the delta scaled
// to the share this container holds of the stock on hand; past sales
// keep their historical cost basis. Each correction leaves an
// immutable audit record.
func (s *Snapshot) adjustContainerPrices(cmd AdjustContainerPrices) ([]PriceAdjustment, error) {
	idx := s.containerIndex(cmd.ContainerID)
	if idx < 0 {
		return nil, invalidErr("containerId", ErrContainerNotFound)
	}
	container := &s.Containers[idx]
	applied := make([]PriceAdjustment, 0, len(cmd.Corrections))
	for _, corr := range cmd.Corrections {
		li := -1
		for i := range container.Lines {
			if container.Lines[i].ProductID == corr.ProductID {
				li = i
				break
			}
		}
		if li < 0 {
			return nil, invalid("corrections", fmt.Sprintf("container %s has no line for product %d", container.ID, corr.ProductID))
		}
		pi := s.productIndex(corr.ProductID)
		if pi < 0 {
			return nil, invalidErr("corrections", ErrProductNotFound)
		}
		line := &container.Lines[li]
		product := &s.Products[pi]
		oldPrice := line.CostPerKg
		record := PriceAdjustment{
			ID:           s.newPriceAdjustmentID(),
			ContainerID:  container.ID,
			ProductID:    corr.ProductID,
			OldCostPerKg: oldPrice,
			NewCostPerKg: corr.NewCostPerKg,
			AdjustedAt:   time.Now().UTC(),
		}
		if product.CurrentStock <= 0 {
			// No cost basis without stock.
			record.CostDelta = -product.CostPerKg
			product.CostPerKg = 0
		} else {
			containerKg := float64(line.BagQuantity) * line.BagWeight
			weight := containerKg / (float64(product.CurrentStock) * product.BagWeight)
			record.CostDelta = (corr.NewCostPerKg - oldPrice) * weight
			product.CostPerKg += record.CostDelta
		}
		line.CostPerKg = corr.NewCostPerKg
		container.AdjustmentIDs = append(container.AdjustmentIDs, record.ID)
		s.PriceAdjustments = append(s.PriceAdjustments, record)
		applied = append(applied, record)
	}
	return applied, nil
}

// validateLines checks references and quantities, creating products on
// first reference when a line names one.
func (s *Snapshot) validateLines(lines []ContainerLine) error {
	if len(lines) == 0 {
		return invalid("lines", "container needs at least one line")
	}
	for i := range lines {
		line := &lines[i]
		if line.BagQuantity <= 0 {
			return invalid("lines", fmt.Sprintf("line %d: bag quantity must be positive", i))
		}
		if line.BagWeight <= 0 {
			return invalid("lines", fmt.Sprintf("line %d: bag weight must be positive", i))
		}
		if line.CostPerKg < 0 {
			return invalid("lines", fmt.Sprintf("line %d: cost per kg must not be negative", i))
		}
		if line.ProductID != 0 {
			if s.productIndex(line.ProductID) < 0 {
				return invalidErr("lines", ErrProductNotFound)
			}
			continue
		}
		if line.ProductName == "" {
			return invalid("lines", fmt.Sprintf("line %d: product id or name required", i))
		}
		product := Product{
			ID:        s.newProductID(),
			Name:      line.ProductName,
			Category:  line.Category,
			BagWeight: line.BagWeight,
		}
		s.Products = append(s.Products, product)
		line.ProductID = product.ID
	}
	return nil
}

// applyContainer runs the create computation: overhead allocated per
// bag, then either a fresh cost (empty stock) or a kg-weighted blend.
func (s *Snapshot) applyContainer(container *Container) {
	overheadPerBag := 0.0
	if total := container.TotalBags(); total > 0 {
		overheadPerBag = (container.ShippingCost + container.CustomsCost) / float64(total)
	}
	for _, line := range container.Lines {
		pi := s.productIndex(line.ProductID)
		if pi < 0 {
			continue
		}
		product := &s.Products[pi]
		if product.CurrentStock == 0 {
			product.CostPerKg = (line.CostPerKg*line.BagWeight + overheadPerBag) / line.BagWeight
		} else {
			currentKg := float64(product.CurrentStock) * product.BagWeight
			newKg := float64(line.BagQuantity) * line.BagWeight
			product.CostPerKg = (currentKg*product.CostPerKg +
				newKg*line.CostPerKg +
				float64(line.BagQuantity)*overheadPerBag) / (currentKg + newKg)
		}
		product.CurrentStock += line.BagQuantity
	}
}

// revertContainer backs the recorded quantities out. Cost is reset
// only when the reverted stock reaches zero.
func (s *Snapshot) revertContainer(container Container) {
	for _, line := range container.Lines {
		pi := s.productIndex(line.ProductID)
		if pi < 0 {
			continue
		}
		product := &s.Products[pi]
		product.CurrentStock -= line.BagQuantity
		if product.CurrentStock <= 0 {
			product.CurrentStock = 0
			product.CostPerKg = 0
		}
	}
}

// projectedNegative computes the per-product net stock effect of
// replacing old's lines with the new ones and lists products that
// would end below zero.
func (s *Snapshot) projectedNegative(old Container, lines []ContainerLine) []string {
	delta := map[int]int{}
	for _, line := range old.Lines {
		delta[line.ProductID] -= line.BagQuantity
	}
	for _, line := range lines {
		if line.ProductID == 0 {
			continue // created on apply, starts from zero
		}
		delta[line.ProductID] += line.BagQuantity
	}
	var offenders []string
	for productID, d := range delta {
		pi := s.productIndex(productID)
		if pi < 0 {
			continue
		}
		if s.Products[pi].CurrentStock+d < 0 {
			offenders = append(offenders, fmt.Sprintf("product %d", productID))
		}
	}
	sort.Strings(offenders)
	return offenders
}
