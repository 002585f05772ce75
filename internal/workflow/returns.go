package workflow

import (
	"context"

	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"
)

// Return confirmation closes the loop opened by InitiateReturn: the return
// document, the asset, and the loan move together in one transaction.

// ListReturns returns all asset-return documents.
func (s *Service) ListReturns(ctx context.Context) ([]models.AssetReturn, error) {
	var docs []models.AssetReturn
	if err := s.store.Get(ctx, store.AssetReturns, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// mutateReturn loads the return document plus its loan and asset, applies fn,
// and commits everything together. fn also receives every return document so
// it can reason about the loan's other open returns.
func (s *Service) mutateReturn(ctx context.Context, returnID string, fn func(doc *models.AssetReturn, docs []models.AssetReturn, loan *models.LoanRequest, asset *models.Asset) error) (*models.AssetReturn, error) {
	var out models.AssetReturn
	err := s.store.Update(ctx, []string{store.AssetReturns, store.LoanRequests, store.Assets}, func(tx store.Tx) error {
		var docs []models.AssetReturn
		if err := tx.Get(store.AssetReturns, &docs); err != nil {
			return err
		}
		var doc *models.AssetReturn
		for i := range docs {
			if docs[i].ID == returnID {
				doc = &docs[i]
				break
			}
		}
		if doc == nil {
			return &NotFoundError{Collection: store.AssetReturns, ID: returnID}
		}

		var loans []models.LoanRequest
		if err := tx.Get(store.LoanRequests, &loans); err != nil {
			return err
		}
		var loan *models.LoanRequest
		for i := range loans {
			if loans[i].ID == doc.LoanID {
				loan = &loans[i]
				break
			}
		}
		if loan == nil {
			return invariantf("return %s references missing loan %s", returnID, doc.LoanID)
		}

		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		i := assetIndex(assets, doc.AssetID)
		if i < 0 {
			return invariantf("return %s references missing asset %s", returnID, doc.AssetID)
		}

		if err := fn(doc, docs, loan, &assets[i]); err != nil {
			return err
		}
		out = *doc

		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		if err := tx.Put(store.LoanRequests, loans); err != nil {
			return err
		}
		return tx.Put(store.AssetReturns, docs)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmReturn approves a pending return: the asset goes back to storage
// with the noted condition, the loan's returnedAssetIds grows, and once every
// assigned asset is back the loan closes as RETURNED.
func (s *Service) ConfirmReturn(ctx context.Context, actor models.Actor, returnID, condition string) (*models.AssetReturn, error) {
	if err := requirePermission(actor, permission.LoansReturn); err != nil {
		return nil, err
	}

	var loanClosed bool
	var loanID string
	doc, err := s.mutateReturn(ctx, returnID, func(doc *models.AssetReturn, _ []models.AssetReturn, loan *models.LoanRequest, asset *models.Asset) error {
		if doc.Status != models.DocPending {
			return validationf("return confirmation requires PENDING, document is %s", doc.Status)
		}
		if asset.Status != models.AssetAwaitingReturn {
			return &ConflictError{EntityIDs: []string{asset.ID}, Msg: "asset not awaiting return"}
		}

		now := s.now()
		doc.Status = models.DocCompleted
		doc.Condition = condition
		doc.ReceivedBy = &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now}
		doc.UpdatedAt = now

		storeAsset(asset, condition, "Returned from loan "+loan.DocumentNumber, actor, now)

		if !loan.Returned(asset.ID) {
			loan.ReturnedAssetIDs = append(loan.ReturnedAssetIDs, asset.ID)
		}
		if len(loan.OutstandingAssets()) == 0 {
			loan.Status = models.LoanReturned
			loan.ActualReturnDate = &now
			loan.ActivityLog = append(loan.ActivityLog, s.statusEntry(actor, "All assets returned", now))
			loanClosed = true
		} else {
			loan.ActivityLog = append(loan.ActivityLog, s.statusEntry(actor, "Asset "+asset.ID+" returned", now))
		}
		loan.UpdatedAt = now
		loan.UpdatedBy = actor.ID
		loanID = loan.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if loanClosed {
		s.notify.Notify(Event{Recipient: doc.ReturnedBy.UserID, Type: "loan_closed", ReferenceID: loanID})
	}
	return doc, nil
}

// RejectReturn declines a pending return: the asset reverts to IN_USE with
// the loan's requester, the document records the reason, and the loan stays
// open.
func (s *Service) RejectReturn(ctx context.Context, actor models.Actor, returnID, reason string) (*models.AssetReturn, error) {
	if err := requirePermission(actor, permission.LoansReturn); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationf("rejection reason is required")
	}

	return s.mutateReturn(ctx, returnID, func(doc *models.AssetReturn, docs []models.AssetReturn, loan *models.LoanRequest, asset *models.Asset) error {
		if doc.Status != models.DocPending {
			return validationf("return rejection requires PENDING, document is %s", doc.Status)
		}
		if asset.Status != models.AssetAwaitingReturn {
			return &ConflictError{EntityIDs: []string{asset.ID}, Msg: "asset not awaiting return"}
		}

		now := s.now()
		doc.Status = models.DocRejected
		doc.Reason = reason
		doc.ReceivedBy = &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now}
		doc.UpdatedAt = now

		asset.Status = models.AssetInUse
		asset.ActivityLog = append(asset.ActivityLog, s.statusEntry(actor, "Return rejected: "+reason, now))
		stamp(asset, actor, now)

		// AWAITING_RETURN only holds while something is actually awaiting.
		// This rejection (already recorded on doc) may have been the last
		// open return.
		open := false
		for i := range docs {
			if docs[i].LoanID == loan.ID && docs[i].Status == models.DocPending {
				open = true
				break
			}
		}
		if !open && loan.Status == models.LoanAwaitingReturn {
			loan.Status = models.LoanOnLoan
		}

		loan.ActivityLog = append(loan.ActivityLog, s.statusEntry(actor, "Return of "+asset.ID+" rejected: "+reason, now))
		loan.UpdatedAt = now
		loan.UpdatedBy = actor.ID
		return nil
	})
}
