package ledger

import (
	"regexp"
	"strconv"
	"strings"
)

// corruptionMarkers are literal substrings left behind when a missing
// value was concatenated into an identifier by older clients.
var corruptionMarkers = []string{"undefined", "NaN", "null"}

var (
	partnerIDPattern       = regexp.MustCompile(`^P[0-9]+$`)
	withdrawalIDPattern    = regexp.MustCompile(`^W[0-9]+$`)
	cashInjectionIDPattern = regexp.MustCompile(`^CI[0-9]+$`)
)

func formatInt(n int) string { return strconv.Itoa(n) }

// nextID issues the next sequence number for kind and advances the
// counter. Counters are part of the snapshot so they survive reloads.
func (s *Snapshot) nextID(kind Kind) int {
	if s.Metadata.NextIDs == nil {
		s.Metadata.NextIDs = newCounters()
	}
	n, ok := s.Metadata.NextIDs[kind]
	if !ok || n < 1 {
		n = 1
	}
	s.Metadata.NextIDs[kind] = n + 1
	return n
}

// Typed id constructors. Identifiers are only ever minted here, so a
// corrupted id cannot enter a ledger built by this code.

func (s *Snapshot) newProductID() int { return s.nextID(KindProduct) }
func (s *Snapshot) newSaleID() int    { return s.nextID(KindSale) }
func (s *Snapshot) newExpenseID() int { return s.nextID(KindExpense) }

func (s *Snapshot) newContainerID() string {
	return "C" + formatInt(s.nextID(KindContainer))
}
func (s *Snapshot) newPartnerID() string {
	return "P" + formatInt(s.nextID(KindPartner))
}
func (s *Snapshot) newWithdrawalID() string {
	return "W" + formatInt(s.nextID(KindWithdrawal))
}
func (s *Snapshot) newCashInjectionID() string {
	return "CI" + formatInt(s.nextID(KindCashInjection))
}
func (s *Snapshot) newCashFlowID() string {
	return "CF" + formatInt(s.nextID(KindCashFlow))
}
func (s *Snapshot) newPriceAdjustmentID() string {
	return "PA" + formatInt(s.nextID(KindPriceAdjustment))
}

func isCorrupted(id string) bool {
	for _, marker := range corruptionMarkers {
		if strings.Contains(id, marker) {
			return true
		}
	}
	return false
}

// fixMalformedIDs is a one-shot migration for ledgers written before
// identifiers were minted through typed constructors. It reassigns
// clean sequential ids to corrupted partners, withdrawals and cash
// injections and rewrites every reference to them. Entities whose id
// already fits the expected pattern are never renumbered. Running it
// on a clean ledger changes nothing.
func (s *Snapshot) fixMalformedIDs() int {
	// Replacement ids are minted from the counters, so lift them past
	// every clean id first or a repair could hand out a duplicate.
	s.normalizeCounters()
	repaired := 0
	partnerRenames := map[string]string{}
	for i := range s.Partners {
		id := s.Partners[i].ID
		if !isCorrupted(id) && partnerIDPattern.MatchString(id) {
			continue
		}
		clean := s.newPartnerID()
		partnerRenames[id] = clean
		s.Partners[i].ID = clean
		repaired++
	}
	withdrawalRenames := map[string]string{}
	for i := range s.Withdrawals {
		if to, ok := partnerRenames[s.Withdrawals[i].PartnerID]; ok {
			s.Withdrawals[i].PartnerID = to
		}
		id := s.Withdrawals[i].ID
		if !isCorrupted(id) && withdrawalIDPattern.MatchString(id) {
			continue
		}
		clean := s.newWithdrawalID()
		withdrawalRenames[id] = clean
		s.Withdrawals[i].ID = clean
		repaired++
	}
	injectionRenames := map[string]string{}
	for i := range s.CashInjections {
		if to, ok := partnerRenames[s.CashInjections[i].PartnerID]; ok {
			s.CashInjections[i].PartnerID = to
		}
		id := s.CashInjections[i].ID
		if !isCorrupted(id) && cashInjectionIDPattern.MatchString(id) {
			continue
		}
		clean := s.newCashInjectionID()
		injectionRenames[id] = clean
		s.CashInjections[i].ID = clean
		repaired++
	}
	for i := range s.CashFlows {
		flow := &s.CashFlows[i]
		switch flow.SourceKind {
		case KindWithdrawal:
			if to, ok := withdrawalRenames[flow.SourceID]; ok {
				flow.SourceID = to
			}
		case KindCashInjection:
			if to, ok := injectionRenames[flow.SourceID]; ok {
				flow.SourceID = to
			}
		}
	}
	return repaired
}

// normalizeCounters lifts every counter above the highest identifier
// already present, so a loaded snapshot can never re-issue an id.
func (s *Snapshot) normalizeCounters() {
	if s.Metadata.NextIDs == nil {
		s.Metadata.NextIDs = newCounters()
	}
	lift := func(kind Kind, n int) {
		if s.Metadata.NextIDs[kind] < n+1 {
			s.Metadata.NextIDs[kind] = n + 1
		}
	}
	for k := range newCounters() {
		if s.Metadata.NextIDs[k] < 1 {
			s.Metadata.NextIDs[k] = 1
		}
	}
	for _, p := range s.Products {
		lift(KindProduct, p.ID)
	}
	for _, sale := range s.Sales {
		lift(KindSale, sale.ID)
	}
	for _, e := range s.Expenses {
		lift(KindExpense, e.ID)
	}
	lift(KindContainer, maxNumericSuffix("C", containerIDs(s.Containers)))
	lift(KindPartner, maxNumericSuffix("P", partnerIDs(s.Partners)))
	lift(KindWithdrawal, maxNumericSuffix("W", withdrawalIDs(s.Withdrawals)))
	lift(KindCashInjection, maxNumericSuffix("CI", injectionIDs(s.CashInjections)))
	lift(KindCashFlow, maxNumericSuffix("CF", flowIDs(s.CashFlows)))
	lift(KindPriceAdjustment, maxNumericSuffix("PA", adjustmentIDs(s.PriceAdjustments)))
}

func maxNumericSuffix(prefix string, ids []string) int {
	max := 0
	for _, id := range ids {
		rest, ok := strings.CutPrefix(id, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max
}

func containerIDs(cs []Container) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func partnerIDs(ps []Partner) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ID
	}
	return out
}

func withdrawalIDs(ws []Withdrawal) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.ID
	}
	return out
}

func injectionIDs(cis []CashInjection) []string {
	out := make([]string, len(cis))
	for i, ci := range cis {
		out[i] = ci.ID
	}
	return out
}

func flowIDs(fs []CashFlow) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.ID
	}
	return out
}

func adjustmentIDs(as []PriceAdjustment) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}
