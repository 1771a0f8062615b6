package ledger

import "time"

// appendCashFlow books the money side of a command. Flows are removed
// again when their source record is deleted, so the collection always
// mirrors the surviving money-moving entities.
func (s *Snapshot) appendCashFlow(direction FlowDirection, amount float64, source Kind, sourceID string, date time.Time) {
	s.CashFlows = append(s.CashFlows, CashFlow{
		ID:         s.newCashFlowID(),
		Direction:  direction,
		Amount:     amount,
		SourceKind: source,
		SourceID:   sourceID,
		Date:       date,
	})
}

func (s *Snapshot) removeCashFlow(source Kind, sourceID string) {
	for i := range s.CashFlows {
		if s.CashFlows[i].SourceKind == source && s.CashFlows[i].SourceID == sourceID {
			s.CashFlows = append(s.CashFlows[:i], s.CashFlows[i+1:]...)
			return
		}
	}
}
