package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustApply(t *testing.T, s Snapshot, cmd Command) (Snapshot, Result) {
	t.Helper()
	next, result, err := Apply(s, cmd)
	require.NoError(t, err)
	return next, result
}

func snapshotWithProduct(t *testing.T, bagWeight float64) (Snapshot, int) {
	t.Helper()
	s, result := mustApply(t, NewSnapshot(), &AddProduct{Name: "Basmati Rice", Category: "Rice", BagWeight: bagWeight})
	return s, result.Entity.(Product).ID
}

func TestContainerCostAllocation(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)

	s, result := mustApply(t, s, &AddContainer{
		Lines:        []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
		ShippingCost: 100,
		CustomsCost:  50,
	})
	container := result.Entity.(Container)
	require.Equal(t, "C1", container.ID)

	product := s.Products[0]
	require.Equal(t, 10, product.CurrentStock)
	// overhead 150/10 = 15 per bag; (2*25 + 15) / 25 = 2.6
	require.InDelta(t, 2.6, product.CostPerKg, 0.0001)
}

func TestWeightedAverageBlend(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)

	s, _ = mustApply(t, s, &AddContainer{
		Lines:        []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
		ShippingCost: 100,
		CustomsCost:  50,
	})
	s, _ = mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 3, BagWeight: 25}},
	})

	product := s.Products[0]
	require.Equal(t, 20, product.CurrentStock)
	// (250*2.6 + 250*3 + 0) / 500 = 2.8
	require.InDelta(t, 2.8, product.CostPerKg, 0.0001)
}

func TestContainerCreatesProductOnFirstReference(t *testing.T) {
	s, result := mustApply(t, NewSnapshot(), &AddContainer{
		Lines: []ContainerLine{{ProductName: "Red Lentils", Category: "Pulses", BagQuantity: 5, CostPerKg: 1.5, BagWeight: 50}},
	})
	container := result.Entity.(Container)
	require.Len(t, s.Products, 1)
	require.Equal(t, "Red Lentils", s.Products[0].Name)
	require.Equal(t, s.Products[0].ID, container.Lines[0].ProductID)
	require.Equal(t, 5, s.Products[0].CurrentStock)
}

func TestUpdateContainerMatchesDeleteThenCreate(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	s, created := mustApply(t, s, &AddContainer{
		Lines:        []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
		ShippingCost: 100,
		CustomsCost:  50,
	})
	containerID := created.Entity.(Container).ID

	edited, _ := mustApply(t, s, &UpdateContainer{
		ID:           containerID,
		Lines:        []ContainerLine{{ProductID: productID, BagQuantity: 20, CostPerKg: 2.5, BagWeight: 25}},
		ShippingCost: 200,
		CustomsCost:  0,
	})

	// Same end state as deleting and recreating with the new lines.
	deleted, _ := mustApply(t, s, &DeleteContainer{ID: containerID})
	recreated, _ := mustApply(t, deleted, &AddContainer{
		Lines:        []ContainerLine{{ProductID: productID, BagQuantity: 20, CostPerKg: 2.5, BagWeight: 25}},
		ShippingCost: 200,
		CustomsCost:  0,
	})

	require.Equal(t, recreated.Products[0].CurrentStock, edited.Products[0].CurrentStock)
	require.InDelta(t, recreated.Products[0].CostPerKg, edited.Products[0].CostPerKg, 0.0001)
	require.Len(t, edited.Containers, 1)
	require.Equal(t, containerID, edited.Containers[0].ID)
}

func TestUpdateContainerKeepsCostWhenStockRemains(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	s, _ = mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
	})
	s, second := mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 4, BagWeight: 25}},
	})
	costBefore := s.Products[0].CostPerKg

	// Reverting the second container leaves 10 bags, so the blended
	// cost stays as an approximation rather than rewinding to 2.0.
	s, _ = mustApply(t, s, &UpdateContainer{
		ID:    second.Entity.(Container).ID,
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 5, CostPerKg: 4, BagWeight: 25}},
	})
	require.Equal(t, 15, s.Products[0].CurrentStock)

	currentKg := 10.0 * 25
	newKg := 5.0 * 25
	want := (currentKg*costBefore + newKg*4) / (currentKg + newKg)
	require.InDelta(t, want, s.Products[0].CostPerKg, 0.0001)
}

func TestDeleteContainerBlockedBySales(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	s, created := mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
	})
	s, _ = mustApply(t, s, &AddSale{ProductID: productID, Quantity: 2, PricePerUnit: 80})

	next, _, err := Apply(s, &DeleteContainer{ID: created.Entity.(Container).ID})
	var guard *IntegrityGuardError
	require.ErrorAs(t, err, &guard)
	require.NotEmpty(t, guard.Offenders)
	require.Equal(t, s, next)
}

func TestDeleteContainerBlockedByProjectedNegativeStock(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	s, first := mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
	})
	// Second product sells from the first container's stock indirectly:
	// destroy stock so reverting the container would go negative.
	s, _ = mustApply(t, s, &DestroyProduct{ID: productID, Quantity: 5})

	next, _, err := Apply(s, &DeleteContainer{ID: first.Entity.(Container).ID})
	var guard *IntegrityGuardError
	require.ErrorAs(t, err, &guard)
	require.Equal(t, s, next)
}

func TestDeleteContainerGuardSumsDuplicateProductLines(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	// Two lines for the same product: the revert removes 20 bags, so
	// the guard must reason about the sum, not each line alone.
	s, created := mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{
			{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25},
			{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25},
		},
	})
	s, _ = mustApply(t, s, &DestroyProduct{ID: productID, Quantity: 6})
	require.Equal(t, 14, s.Products[0].CurrentStock)

	next, _, err := Apply(s, &DeleteContainer{ID: created.Entity.(Container).ID})
	var guard *IntegrityGuardError
	require.ErrorAs(t, err, &guard)
	require.Equal(t, s, next)
	require.Equal(t, 14, next.Products[0].CurrentStock)
}

func TestDeleteContainerLeavesCostUntouched(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	s, _ = mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
	})
	s, second := mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 4, BagWeight: 25}},
	})
	costBefore := s.Products[0].CostPerKg

	s, _ = mustApply(t, s, &DeleteContainer{ID: second.Entity.(Container).ID})
	require.Equal(t, 10, s.Products[0].CurrentStock)
	require.InDelta(t, costBefore, s.Products[0].CostPerKg, 0.0001)
	require.Len(t, s.Containers, 1)
}

func TestPriceAdjustmentProportionalNudge(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	// Two containers of 10 bags each: the first holds 50% of stock kg.
	s, first := mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
	})
	s, _ = mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
	})
	costBefore := s.Products[0].CostPerKg

	s, result := mustApply(t, s, &AdjustContainerPrices{
		ContainerID: first.Entity.(Container).ID,
		Corrections: []PriceCorrection{{ProductID: productID, NewCostPerKg: 3}},
	})

	// +$1/kg on 50% of the stock moves the blended cost by +$0.50/kg.
	require.InDelta(t, costBefore+0.5, s.Products[0].CostPerKg, 0.0001)

	records := result.Entity.([]PriceAdjustment)
	require.Len(t, records, 1)
	require.Equal(t, "PA1", records[0].ID)
	require.InDelta(t, 0.5, records[0].CostDelta, 0.0001)
	require.InDelta(t, 2, records[0].OldCostPerKg, 0.0001)
	require.InDelta(t, 3, records[0].NewCostPerKg, 0.0001)
	require.Len(t, s.PriceAdjustments, 1)
	require.Equal(t, []string{"PA1"}, s.Containers[0].AdjustmentIDs)
	// The container's recorded line cost is corrected too.
	require.InDelta(t, 3, s.Containers[0].Lines[0].CostPerKg, 0.0001)
}

func TestPriceAdjustmentZeroStockForcesZeroCost(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	s, created := mustApply(t, s, &AddContainer{
		Lines: []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
	})
	s, _ = mustApply(t, s, &DestroyProduct{ID: productID, Quantity: 10})
	require.Equal(t, 0, s.Products[0].CurrentStock)

	s, _ = mustApply(t, s, &AdjustContainerPrices{
		ContainerID: created.Entity.(Container).ID,
		Corrections: []PriceCorrection{{ProductID: productID, NewCostPerKg: 5}},
	})
	require.Zero(t, s.Products[0].CostPerKg)
}

func TestPriceAdjustmentNeverRewritesPastSales(t *testing.T) {
	s, productID := snapshotWithProduct(t, 25)
	s, created := mustApply(t, s, &AddContainer{
		Lines:        []ContainerLine{{ProductID: productID, BagQuantity: 10, CostPerKg: 2, BagWeight: 25}},
		ShippingCost: 100,
		CustomsCost:  50,
	})
	s, sold := mustApply(t, s, &AddSale{ProductID: productID, Quantity: 3, PricePerUnit: 80})
	costAtSale := sold.Entity.(Sale).CostPerUnit

	s, _ = mustApply(t, s, &AdjustContainerPrices{
		ContainerID: created.Entity.(Container).ID,
		Corrections: []PriceCorrection{{ProductID: productID, NewCostPerKg: 4}},
	})
	require.InDelta(t, costAtSale, s.Sales[0].CostPerUnit, 0.0001)
}
