package ledger

import "time"

// Equity is a stored field, recomputed on every capital mutation
// (withdrawals included): equity = initial + profit share − withdrawn.
func recomputeEquity(account *CapitalAccount) {
	account.CurrentEquity = account.InitialInvestment + account.ProfitShare - account.TotalWithdrawn
}

func (s *Snapshot) addPartner(cmd AddPartner) (Partner, error) {
	if cmd.InitialInvestment < 0 {
		return Partner{}, invalid("initialInvestment", "investment must not be negative")
	}
	partner := Partner{
		ID:   s.newPartnerID(),
		Name: cmd.Name,
		Capital: CapitalAccount{
			InitialInvestment: cmd.InitialInvestment,
			CurrentEquity:     cmd.InitialInvestment,
		},
		JoinedAt: time.Now().UTC(),
	}
	s.Partners = append(s.Partners, partner)
	return partner, nil
}

func (s *Snapshot) updatePartner(cmd UpdatePartner) (Partner, error) {
	idx := s.partnerIndex(cmd.ID)
	if idx < 0 {
		return Partner{}, invalidErr("id", ErrPartnerNotFound)
	}
	partner := &s.Partners[idx]
	partner.Name = cmd.Name
	partner.Capital.ProfitShare = cmd.ProfitShare
	recomputeEquity(&partner.Capital)
	return *partner, nil
}

// deletePartner refuses while withdrawals or cash injections still
// reference the partner.
func (s *Snapshot) deletePartner(id string) error {
	idx := s.partnerIndex(id)
	if idx < 0 {
		return invalidErr("id", ErrPartnerNotFound)
	}
	var offenders []string
	for _, w := range s.Withdrawals {
		if w.PartnerID == id {
			offenders = append(offenders, "withdrawal "+w.ID)
		}
	}
	for _, ci := range s.CashInjections {
		if ci.PartnerID == id {
			offenders = append(offenders, "cash injection "+ci.ID)
		}
	}
	if len(offenders) > 0 {
		return &IntegrityGuardError{Op: "deletePartner", Reason: "partner is still referenced", Offenders: offenders}
	}
	s.Partners = append(s.Partners[:idx], s.Partners[idx+1:]...)
	return nil
}

func (s *Snapshot) addWithdrawal(cmd AddWithdrawal) (Withdrawal, error) {
	idx := s.partnerIndex(cmd.PartnerID)
	if idx < 0 {
		return Withdrawal{}, invalidErr("partnerId", ErrPartnerNotFound)
	}
	if cmd.Amount <= 0 {
		return Withdrawal{}, invalid("amount", "amount must be positive")
	}
	account := &s.Partners[idx].Capital
	account.TotalWithdrawn += cmd.Amount
	recomputeEquity(account)
	withdrawal := Withdrawal{
		ID:        s.newWithdrawalID(),
		PartnerID: cmd.PartnerID,
		Amount:    cmd.Amount,
		Note:      cmd.Note,
		Date:      time.Now().UTC(),
	}
	s.Withdrawals = append(s.Withdrawals, withdrawal)
	s.appendCashFlow(FlowOut, cmd.Amount, KindWithdrawal, withdrawal.ID, withdrawal.Date)
	return withdrawal, nil
}

func (s *Snapshot) deleteWithdrawal(id string) error {
	idx := s.withdrawalIndex(id)
	if idx < 0 {
		return invalidErr("id", ErrWithdrawalNotFound)
	}
	withdrawal := s.Withdrawals[idx]
	if pi := s.partnerIndex(withdrawal.PartnerID); pi >= 0 {
		account := &s.Partners[pi].Capital
		account.TotalWithdrawn -= withdrawal.Amount
		if account.TotalWithdrawn < 0 {
			account.TotalWithdrawn = 0
		}
		recomputeEquity(account)
	}
	s.Withdrawals = append(s.Withdrawals[:idx], s.Withdrawals[idx+1:]...)
	s.removeCashFlow(KindWithdrawal, id)
	return nil
}

func (s *Snapshot) addCashInjection(cmd AddCashInjection) (CashInjection, error) {
	if !cmd.Type.Valid() {
		return CashInjection{}, invalid("type", "unknown cash injection type")
	}
	if cmd.Amount <= 0 {
		return CashInjection{}, invalid("amount", "amount must be positive")
	}
	if cmd.Type == InjectionCapitalContribution {
		if cmd.PartnerID == "" {
			return CashInjection{}, invalid("partnerId", "capital contribution requires a partner")
		}
		if s.partnerIndex(cmd.PartnerID) < 0 {
			return CashInjection{}, invalidErr("partnerId", ErrPartnerNotFound)
		}
	} else if cmd.PartnerID != "" && s.partnerIndex(cmd.PartnerID) < 0 {
		return CashInjection{}, invalidErr("partnerId", ErrPartnerNotFound)
	}
	injection := CashInjection{
		ID:        s.newCashInjectionID(),
		Type:      cmd.Type,
		Amount:    cmd.Amount,
		PartnerID: cmd.PartnerID,
		Note:      cmd.Note,
		Date:      time.Now().UTC(),
	}
	s.applyContribution(injection, 1)
	s.CashInjections = append(s.CashInjections, injection)
	s.appendCashFlow(FlowIn, cmd.Amount, KindCashInjection, injection.ID, injection.Date)
	return injection, nil
}

func (s *Snapshot) updateCashInjection(cmd UpdateCashInjection) (CashInjection, error) {
	idx := s.cashInjectionIndex(cmd.ID)
	if idx < 0 {
		return CashInjection{}, invalidErr("id", ErrCashInjectionNotFound)
	}
	if !cmd.Type.Valid() {
		return CashInjection{}, invalid("type", "unknown cash injection type")
	}
	if cmd.Amount <= 0 {
		return CashInjection{}, invalid("amount", "amount must be positive")
	}
	if cmd.Type == InjectionCapitalContribution {
		if cmd.PartnerID == "" {
			return CashInjection{}, invalid("partnerId", "capital contribution requires a partner")
		}
		if s.partnerIndex(cmd.PartnerID) < 0 {
			return CashInjection{}, invalidErr("partnerId", ErrPartnerNotFound)
		}
	} else if cmd.PartnerID != "" && s.partnerIndex(cmd.PartnerID) < 0 {
		return CashInjection{}, invalidErr("partnerId", ErrPartnerNotFound)
	}
	old := s.CashInjections[idx]
	s.applyContribution(old, -1)
	updated := CashInjection{
		ID:        old.ID,
		Type:      cmd.Type,
		Amount:    cmd.Amount,
		PartnerID: cmd.PartnerID,
		Note:      cmd.Note,
		Date:      old.Date,
	}
	s.applyContribution(updated, 1)
	s.CashInjections[idx] = updated
	s.removeCashFlow(KindCashInjection, old.ID)
	s.appendCashFlow(FlowIn, cmd.Amount, KindCashInjection, updated.ID, updated.Date)
	return updated, nil
}

func (s *Snapshot) deleteCashInjection(id string) error {
	idx := s.cashInjectionIndex(id)
	if idx < 0 {
		return invalidErr("id", ErrCashInjectionNotFound)
	}
	injection := s.CashInjections[idx]
	s.applyContribution(injection, -1)
	s.CashInjections = append(s.CashInjections[:idx], s.CashInjections[idx+1:]...)
	s.removeCashFlow(KindCashInjection, id)
	return nil
}

// applyContribution adds (sign +1) or reverses (sign −1) the capital
// effect of an injection. Only capital contributions have one.
func (s *Snapshot) applyContribution(injection CashInjection, sign float64) {
	if injection.Type != InjectionCapitalContribution {
		return
	}
	pi := s.partnerIndex(injection.PartnerID)
	if pi < 0 {
		return
	}
	account := &s.Partners[pi].Capital
	account.InitialInvestment += sign * injection.Amount
	if sign > 0 {
		account.AdditionalContributions = append(account.AdditionalContributions, injection.Amount)
	} else {
		for i := len(account.AdditionalContributions) - 1; i >= 0; i-- {
			if account.AdditionalContributions[i] == injection.Amount {
				account.AdditionalContributions = append(account.AdditionalContributions[:i], account.AdditionalContributions[i+1:]...)
				break
			}
		}
	}
	recomputeEquity(account)
}
