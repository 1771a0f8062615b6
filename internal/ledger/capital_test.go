package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func snapshotWithPartner(t *testing.T, investment float64) (Snapshot, string) {
	t.Helper()
	s, result := mustApply(t, NewSnapshot(), &AddPartner{Name: "Amina", InitialInvestment: investment})
	return s, result.Entity.(Partner).ID
}

func TestAddPartnerSeedsEquity(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)
	require.Equal(t, "P1", partnerID)
	account := s.Partners[0].Capital
	require.InDelta(t, 1000, account.InitialInvestment, 0.0001)
	require.InDelta(t, 1000, account.CurrentEquity, 0.0001)
}

// Equity is a stored field recomputed on every capital mutation,
// withdrawals included.
func TestWithdrawalUpdatesEquity(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)

	s, result := mustApply(t, s, &AddWithdrawal{PartnerID: partnerID, Amount: 200})
	withdrawal := result.Entity.(Withdrawal)
	require.Equal(t, "W1", withdrawal.ID)

	account := s.Partners[0].Capital
	require.InDelta(t, 200, account.TotalWithdrawn, 0.0001)
	require.InDelta(t, 800, account.CurrentEquity, 0.0001)
	require.Len(t, s.CashFlows, 1)
	require.Equal(t, FlowOut, s.CashFlows[0].Direction)
}

func TestDeleteWithdrawalReversesAndFloors(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)
	s, result := mustApply(t, s, &AddWithdrawal{PartnerID: partnerID, Amount: 200})

	s, _ = mustApply(t, s, &DeleteWithdrawal{ID: result.Entity.(Withdrawal).ID})
	account := s.Partners[0].Capital
	require.Zero(t, account.TotalWithdrawn)
	require.InDelta(t, 1000, account.CurrentEquity, 0.0001)
	require.Empty(t, s.Withdrawals)
	require.Empty(t, s.CashFlows)
}

func TestCapitalContributionRaisesAccount(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)

	s, result := mustApply(t, s, &AddCashInjection{
		Type:      InjectionCapitalContribution,
		Amount:    500,
		PartnerID: partnerID,
	})
	injection := result.Entity.(CashInjection)
	require.Equal(t, "CI1", injection.ID)

	account := s.Partners[0].Capital
	require.InDelta(t, 1500, account.InitialInvestment, 0.0001)
	require.InDelta(t, 1500, account.CurrentEquity, 0.0001)
	require.Equal(t, []float64{500}, account.AdditionalContributions)
}

func TestLoanInjectionDoesNotTouchCapital(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)

	s, _ = mustApply(t, s, &AddCashInjection{Type: InjectionLoan, Amount: 700, PartnerID: partnerID})
	account := s.Partners[0].Capital
	require.InDelta(t, 1000, account.InitialInvestment, 0.0001)
	require.InDelta(t, 1000, account.CurrentEquity, 0.0001)
	require.Len(t, s.CashInjections, 1)
	require.Len(t, s.CashFlows, 1)
}

func TestDeleteCapitalContributionReversesSymmetrically(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)
	s, result := mustApply(t, s, &AddCashInjection{
		Type:      InjectionCapitalContribution,
		Amount:    500,
		PartnerID: partnerID,
	})

	s, _ = mustApply(t, s, &DeleteCashInjection{ID: result.Entity.(CashInjection).ID})
	account := s.Partners[0].Capital
	require.InDelta(t, 1000, account.InitialInvestment, 0.0001)
	require.InDelta(t, 1000, account.CurrentEquity, 0.0001)
	require.Empty(t, account.AdditionalContributions)
	require.Empty(t, s.CashInjections)
	require.Empty(t, s.CashFlows)
}

func TestUpdateCashInjectionRebooksCapitalEffect(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)
	s, result := mustApply(t, s, &AddCashInjection{
		Type:      InjectionCapitalContribution,
		Amount:    500,
		PartnerID: partnerID,
	})

	// Reclassify as a loan: the capital effect must be fully reversed.
	s, _ = mustApply(t, s, &UpdateCashInjection{
		ID:        result.Entity.(CashInjection).ID,
		Type:      InjectionLoan,
		Amount:    500,
		PartnerID: partnerID,
	})
	account := s.Partners[0].Capital
	require.InDelta(t, 1000, account.InitialInvestment, 0.0001)
	require.InDelta(t, 1000, account.CurrentEquity, 0.0001)
	require.Len(t, s.CashInjections, 1)
	require.Equal(t, InjectionLoan, s.CashInjections[0].Type)
}

func TestUpdateCashInjectionRejectsUnknownPartner(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)
	s, result := mustApply(t, s, &AddCashInjection{Type: InjectionLoan, Amount: 700, PartnerID: partnerID})

	// Non-capital updates get the same partner check as the add path.
	next, _, err := Apply(s, &UpdateCashInjection{
		ID:        result.Entity.(CashInjection).ID,
		Type:      InjectionLoan,
		Amount:    700,
		PartnerID: "P9",
	})
	require.ErrorIs(t, err, ErrPartnerNotFound)
	require.Equal(t, s, next)
}

func TestUpdatePartnerProfitShareRecomputesEquity(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)
	s, _ = mustApply(t, s, &AddWithdrawal{PartnerID: partnerID, Amount: 200})

	s, _ = mustApply(t, s, &UpdatePartner{ID: partnerID, Name: "Amina", ProfitShare: 300})
	account := s.Partners[0].Capital
	// 1000 + 300 - 200
	require.InDelta(t, 1100, account.CurrentEquity, 0.0001)
}

func TestDeletePartnerBlockedByReferences(t *testing.T) {
	s, partnerID := snapshotWithPartner(t, 1000)
	s, _ = mustApply(t, s, &AddWithdrawal{PartnerID: partnerID, Amount: 100})

	next, _, err := Apply(s, &DeletePartner{ID: partnerID})
	var guard *IntegrityGuardError
	require.ErrorAs(t, err, &guard)
	require.Contains(t, guard.Offenders[0], "withdrawal")
	require.Equal(t, s, next)
}

func TestCapitalContributionRequiresPartner(t *testing.T) {
	s := NewSnapshot()
	_, _, err := Apply(s, &AddCashInjection{Type: InjectionCapitalContribution, Amount: 100})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	_, _, err = Apply(s, &AddCashInjection{Type: InjectionCapitalContribution, Amount: 100, PartnerID: "P9"})
	require.ErrorIs(t, err, ErrPartnerNotFound)
}
