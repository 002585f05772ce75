package workflow

import (
	"context"
	"fmt"

	"arka-asset-api/internal/docnum"
	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"
)

// Loan state machine. ApproveLoan is the one multi-entity transaction in the
// system: the loan write and the asset flips commit together or not at all.

// ListLoans returns all loan requests with the OVERDUE projection applied.
func (s *Service) ListLoans(ctx context.Context) ([]models.LoanRequest, error) {
	var loans []models.LoanRequest
	if err := s.store.Get(ctx, store.LoanRequests, &loans); err != nil {
		return nil, err
	}
	now := s.now()
	for i := range loans {
		loans[i].Status = models.ProjectLoanStatus(&loans[i], now)
	}
	return loans, nil
}

// GetLoan returns one loan with the OVERDUE projection applied.
func (s *Service) GetLoan(ctx context.Context, id string) (*models.LoanRequest, error) {
	var loans []models.LoanRequest
	if err := s.store.Get(ctx, store.LoanRequests, &loans); err != nil {
		return nil, err
	}
	for i := range loans {
		if loans[i].ID == id {
			loans[i].Status = models.ProjectLoanStatus(&loans[i], s.now())
			return &loans[i], nil
		}
	}
	return nil, &NotFoundError{Collection: store.LoanRequests, ID: id}
}

// CreateLoan opens a loan request at PENDING.
func (s *Service) CreateLoan(ctx context.Context, actor models.Actor, in models.CreateLoanInput) (*models.LoanRequest, error) {
	if err := requirePermission(actor, permission.LoansCreate); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, validationf("a loan request needs at least one item")
	}
	now := s.now()
	for _, it := range in.Items {
		if it.Name == "" || it.Quantity <= 0 {
			return nil, validationf("loan item %q must have a name and positive quantity", it.ID)
		}
		if it.ReturnDate.Before(now) {
			return nil, validationf("loan item %q has a return date in the past", it.ID)
		}
	}

	number, err := s.docnum(ctx, docnum.PrefixLoan, now)
	if err != nil {
		return nil, err
	}
	items := make([]models.LoanItem, len(in.Items))
	copy(items, in.Items)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = fmt.Sprintf("%s-%d", number, i+1)
		}
	}

	loan := models.LoanRequest{
		ID:             number,
		DocumentNumber: number,
		RequesterID:    actor.ID,
		RequesterName:  actor.Name,
		Division:       in.Division,
		Purpose:        in.Purpose,
		RequestDate:    now,
		Status:         models.LoanPending,
		Items:          items,
		ActivityLog:    []models.ActivityEntry{s.statusEntry(actor, "Loan requested", now)},
		CreatedAt:      now,
		UpdatedAt:      now,
		UpdatedBy:      actor.ID,
	}

	err = s.store.Update(ctx, []string{store.LoanRequests}, func(tx store.Tx) error {
		var loans []models.LoanRequest
		if err := tx.Get(store.LoanRequests, &loans); err != nil {
			return err
		}
		loans = append(loans, loan)
		return tx.Put(store.LoanRequests, loans)
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(Event{Recipient: permission.RoleLogistic, Type: "loan_submitted", ReferenceID: loan.ID})
	return &loan, nil
}

// ApproveLoan decides a pending loan and, when approved, binds the assigned
// assets to it. The ledger is re-read inside the transaction; if any
// referenced asset is not IN_STORAGE at that moment the whole call fails
// with a ConflictError naming the offenders and nothing is written. On
// success every assigned asset flips to IN_USE with the requester as holder,
// atomically with the loan-status write.
func (s *Service) ApproveLoan(ctx context.Context, actor models.Actor, loanID string, assignedAssetIDs map[string][]string, itemStatuses map[string]models.ItemStatus) (*models.LoanRequest, error) {
	if err := requirePermission(actor, permission.LoansApprove); err != nil {
		return nil, err
	}

	now := s.now()
	var out models.LoanRequest
	err := s.store.Update(ctx, []string{store.LoanRequests, store.Assets}, func(tx store.Tx) error {
		var loans []models.LoanRequest
		if err := tx.Get(store.LoanRequests, &loans); err != nil {
			return err
		}
		var loan *models.LoanRequest
		for i := range loans {
			if loans[i].ID == loanID {
				loan = &loans[i]
				break
			}
		}
		if loan == nil {
			return &NotFoundError{Collection: store.LoanRequests, ID: loanID}
		}
		if loan.Status != models.LoanPending {
			return validationf("loan approval requires PENDING, loan is %s", loan.Status)
		}

		itemIDs := make(map[string]bool, len(loan.Items))
		for _, it := range loan.Items {
			itemIDs[it.ID] = true
		}
		for itemID := range itemStatuses {
			if !itemIDs[itemID] {
				return invariantf("item status references unknown loan item %q", itemID)
			}
		}
		for itemID := range assignedAssetIDs {
			if !itemIDs[itemID] {
				return invariantf("assignment references unknown loan item %q", itemID)
			}
		}

		loan.ItemStatuses = itemStatuses
		allRejected := len(loan.Items) > 0
		for _, it := range loan.Items {
			is, ok := itemStatuses[it.ID]
			if !ok || !is.Rejected() {
				allRejected = false
				break
			}
		}

		if allRejected {
			loan.Status = models.LoanRejected
			loan.ActivityLog = append(loan.ActivityLog, s.statusEntry(actor, "Loan rejected", now))
			loan.UpdatedAt = now
			loan.UpdatedBy = actor.ID
			out = *loan
			return tx.Put(store.LoanRequests, loans)
		}

		// Current ledger state, read at transaction time. A stale view from
		// the approval screen must not be trusted here: another admin may
		// have assigned overlapping assets meanwhile.
		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}

		// Rejected items carry no assignment: persisting their entries
		// would leave assets on the loan that the conflict check below
		// never saw.
		assigned := make(map[string][]string, len(assignedAssetIDs))
		var requested []string
		for _, it := range loan.Items {
			if is, ok := itemStatuses[it.ID]; ok && is.Rejected() {
				continue
			}
			if ids := assignedAssetIDs[it.ID]; len(ids) > 0 {
				assigned[it.ID] = ids
				requested = append(requested, ids...)
			}
		}
		if len(requested) == 0 {
			return validationf("approval requires at least one assigned asset")
		}

		var conflicts []string
		indices := make([]int, 0, len(requested))
		seen := make(map[string]bool, len(requested))
		for _, assetID := range requested {
			if seen[assetID] {
				return validationf("asset %s assigned to more than one loan item", assetID)
			}
			seen[assetID] = true
			i := assetIndex(assets, assetID)
			if i < 0 {
				return &NotFoundError{Collection: store.Assets, ID: assetID}
			}
			if assets[i].Status != models.AssetInStorage {
				conflicts = append(conflicts, assetID)
				continue
			}
			indices = append(indices, i)
		}
		if len(conflicts) > 0 {
			return &ConflictError{
				EntityIDs: conflicts,
				Msg:       "assets no longer available",
			}
		}

		holderName := loan.RequesterName
		if holderName == "" {
			holderName = loan.RequesterID
		}
		for _, i := range indices {
			if err := lendAsset(&assets[i], loan.RequesterID, holderName, actor, now); err != nil {
				return err
			}
		}

		loan.Status = models.LoanApproved
		loan.AssignedAssetIDs = assigned
		loan.ActivityLog = append(loan.ActivityLog, s.statusEntry(actor, "Loan approved, assets assigned", now))
		loan.UpdatedAt = now
		loan.UpdatedBy = actor.ID
		out = *loan

		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		return tx.Put(store.LoanRequests, loans)
	})
	if err != nil {
		return nil, err
	}

	eventType := "loan_approved"
	if out.Status == models.LoanRejected {
		eventType = "loan_rejected"
	}
	s.notify.Notify(Event{Recipient: out.RequesterID, Type: eventType, ReferenceID: loanID})
	return &out, nil
}

// MarkOnLoan records physical pickup: APPROVED -> ON_LOAN.
func (s *Service) MarkOnLoan(ctx context.Context, actor models.Actor, loanID string) (*models.LoanRequest, error) {
	if err := requirePermission(actor, permission.LoansApprove); err != nil {
		return nil, err
	}
	return s.mutateLoan(ctx, loanID, func(loan *models.LoanRequest) error {
		if loan.Status != models.LoanApproved {
			return validationf("pickup requires APPROVED, loan is %s", loan.Status)
		}
		now := s.now()
		loan.Status = models.LoanOnLoan
		loan.ActivityLog = append(loan.ActivityLog, s.statusEntry(actor, "Assets picked up", now))
		loan.UpdatedAt = now
		loan.UpdatedBy = actor.ID
		return nil
	})
}

// InitiateReturn opens return documents for the selected assets (default: all
// outstanding) and marks them AWAITING_RETURN. The loan itself moves to
// AWAITING_RETURN once any asset is awaiting.
func (s *Service) InitiateReturn(ctx context.Context, actor models.Actor, loanID string, selectedAssetIDs []string) ([]models.AssetReturn, error) {
	if err := requirePermission(actor, permission.LoansReturn); err != nil {
		return nil, err
	}

	now := s.now()
	var returns []models.AssetReturn
	err := s.store.Update(ctx, []string{store.LoanRequests, store.Assets, store.AssetReturns, store.Sequences}, func(tx store.Tx) error {
		var loans []models.LoanRequest
		if err := tx.Get(store.LoanRequests, &loans); err != nil {
			return err
		}
		var loan *models.LoanRequest
		for i := range loans {
			if loans[i].ID == loanID {
				loan = &loans[i]
				break
			}
		}
		if loan == nil {
			return &NotFoundError{Collection: store.LoanRequests, ID: loanID}
		}
		switch loan.Status {
		case models.LoanOnLoan, models.LoanApproved, models.LoanAwaitingReturn:
		default:
			return validationf("return initiation requires an active loan, loan is %s", loan.Status)
		}

		outstanding := make(map[string]bool)
		for _, id := range loan.OutstandingAssets() {
			outstanding[id] = true
		}
		selected := selectedAssetIDs
		if len(selected) == 0 {
			selected = loan.OutstandingAssets()
		}
		if len(selected) == 0 {
			return validationf("no outstanding assets to return")
		}

		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		var docs []models.AssetReturn
		if err := tx.Get(store.AssetReturns, &docs); err != nil {
			return err
		}

		for _, assetID := range selected {
			if !outstanding[assetID] {
				return validationf("asset %s is not outstanding on this loan", assetID)
			}
			i := assetIndex(assets, assetID)
			if i < 0 {
				return invariantf("loan %s references missing asset %s", loanID, assetID)
			}
			a := &assets[i]
			if a.Status == models.AssetAwaitingReturn {
				continue // already has an open return
			}
			if a.Status != models.AssetInUse {
				return &ConflictError{EntityIDs: []string{assetID}, Msg: "asset not in use"}
			}
			a.Status = models.AssetAwaitingReturn
			a.ActivityLog = append(a.ActivityLog, s.statusEntry(actor, "Return initiated", now))
			stamp(a, actor, now)

			number, err := docnum.NextInTx(tx, docnum.PrefixReturn, now)
			if err != nil {
				return err
			}
			doc := models.AssetReturn{
				ID:         number,
				LoanID:     loanID,
				AssetID:    assetID,
				Status:     models.DocPending,
				ReturnedBy: &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now},
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			doc.DocumentNumber = doc.ID
			docs = append(docs, doc)
			returns = append(returns, doc)
		}
		if len(returns) == 0 {
			return validationf("selected assets already have open returns")
		}

		loan.Status = models.LoanAwaitingReturn
		loan.ActivityLog = append(loan.ActivityLog, s.statusEntry(actor, fmt.Sprintf("Return initiated for %d asset(s)", len(returns)), now))
		loan.UpdatedAt = now
		loan.UpdatedBy = actor.ID

		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		if err := tx.Put(store.AssetReturns, docs); err != nil {
			return err
		}
		return tx.Put(store.LoanRequests, loans)
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(Event{Recipient: permission.RoleLogistic, Type: "return_initiated", ReferenceID: loanID})
	return returns, nil
}

// mutateLoan runs fn against the freshly read loan inside a transaction.
func (s *Service) mutateLoan(ctx context.Context, id string, fn func(loan *models.LoanRequest) error) (*models.LoanRequest, error) {
	var out models.LoanRequest
	err := s.store.Update(ctx, []string{store.LoanRequests}, func(tx store.Tx) error {
		var loans []models.LoanRequest
		if err := tx.Get(store.LoanRequests, &loans); err != nil {
			return err
		}
		for i := range loans {
			if loans[i].ID != id {
				continue
			}
			if err := fn(&loans[i]); err != nil {
				return err
			}
			out = loans[i]
			return tx.Put(store.LoanRequests, loans)
		}
		return &NotFoundError{Collection: store.LoanRequests, ID: id}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
