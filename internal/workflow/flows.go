package workflow

import (
	"context"

	"arka-asset-api/internal/docnum"
	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"
)

// Short-lived document flows feeding the asset ledger: handover, dismantle,
// installation, maintenance. Each is a narrow status machine with a
// multi-party signature chain.

// ListHandovers returns all handover documents.
func (s *Service) ListHandovers(ctx context.Context) ([]models.Handover, error) {
	var docs []models.Handover
	if err := s.store.Get(ctx, store.Handovers, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CreateHandover opens the custody-transfer document for a request at
// AWAITING_HANDOVER, covering the assets registered against it.
func (s *Service) CreateHandover(ctx context.Context, actor models.Actor, requestID, recipientID string) (*models.Handover, error) {
	if err := requirePermission(actor, permission.AssetsHandover); err != nil {
		return nil, err
	}

	now := s.now()
	number, err := s.docnum(ctx, docnum.PrefixHandover, now)
	if err != nil {
		return nil, err
	}

	var doc models.Handover
	err = s.store.Update(ctx, []string{store.Requests, store.Assets, store.Handovers}, func(tx store.Tx) error {
		var requests []models.Request
		if err := tx.Get(store.Requests, &requests); err != nil {
			return err
		}
		var req *models.Request
		for i := range requests {
			if requests[i].ID == requestID {
				req = &requests[i]
				break
			}
		}
		if req == nil {
			return &NotFoundError{Collection: store.Requests, ID: requestID}
		}
		if req.Status != models.RequestAwaitingHandover {
			return validationf("handover requires AWAITING_HANDOVER, request is %s", req.Status)
		}
		if req.HandoverID != nil {
			return &ConflictError{EntityIDs: []string{*req.HandoverID}, Msg: "request already has a handover"}
		}

		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		var assetIDs []string
		for i := range assets {
			if assets[i].WoRoIntNumber != nil && *assets[i].WoRoIntNumber == req.DocumentNumber {
				assetIDs = append(assetIDs, assets[i].ID)
			}
		}
		if len(assetIDs) == 0 {
			return invariantf("request %s has no registered assets", requestID)
		}

		var docs []models.Handover
		if err := tx.Get(store.Handovers, &docs); err != nil {
			return err
		}
		doc = models.Handover{
			ID:             number,
			DocumentNumber: number,
			RequestID:      requestID,
			AssetIDs:       assetIDs,
			Division:       req.Division,
			RecipientID:    recipientID,
			Status:         models.DocPending,
			HandedOverBy:   &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		docs = append(docs, doc)

		req.HandoverID = &doc.ID
		req.UpdatedAt = now
		req.UpdatedBy = actor.ID

		if err := tx.Put(store.Handovers, docs); err != nil {
			return err
		}
		return tx.Put(store.Requests, requests)
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(Event{Recipient: recipientID, Type: "handover_opened", ReferenceID: doc.ID})
	return &doc, nil
}

// SignHandover records the recipient's or acknowledger's signature. Once all
// three parties have signed, the handover completes: assets move to the
// recipient and the linked request closes as COMPLETED, all in one commit.
func (s *Service) SignHandover(ctx context.Context, actor models.Actor, handoverID string, asRecipient bool) (*models.Handover, error) {
	if !asRecipient {
		if err := requirePermission(actor, permission.AssetsHandover); err != nil {
			return nil, err
		}
	}

	now := s.now()
	var out models.Handover
	err := s.store.Update(ctx, []string{store.Handovers, store.Requests, store.Assets}, func(tx store.Tx) error {
		var docs []models.Handover
		if err := tx.Get(store.Handovers, &docs); err != nil {
			return err
		}
		var doc *models.Handover
		for i := range docs {
			if docs[i].ID == handoverID {
				doc = &docs[i]
				break
			}
		}
		if doc == nil {
			return &NotFoundError{Collection: store.Handovers, ID: handoverID}
		}
		if doc.Status.Terminal() {
			return validationf("handover is already %s", doc.Status)
		}

		sig := &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now}
		if asRecipient {
			if actor.ID != doc.RecipientID {
				return validationf("only the named recipient may sign as recipient")
			}
			if doc.ReceivedBy != nil {
				return validationf("recipient has already signed")
			}
			doc.ReceivedBy = sig
		} else {
			if doc.AcknowledgedBy != nil {
				return validationf("acknowledger has already signed")
			}
			if doc.HandedOverBy != nil && doc.HandedOverBy.UserID == actor.ID {
				return validationf("issuer cannot also acknowledge")
			}
			doc.AcknowledgedBy = sig
		}
		doc.Status = models.DocInProgress
		doc.UpdatedAt = now

		if !doc.FullySigned() {
			out = *doc
			return tx.Put(store.Handovers, docs)
		}

		// Fully signed: complete everything together.
		doc.Status = models.DocCompleted

		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		recipientName := doc.RecipientID
		if doc.ReceivedBy != nil && doc.ReceivedBy.Name != "" {
			recipientName = doc.ReceivedBy.Name
		}
		for _, assetID := range doc.AssetIDs {
			i := assetIndex(assets, assetID)
			if i < 0 {
				return invariantf("handover %s references missing asset %s", handoverID, assetID)
			}
			if err := lendAsset(&assets[i], doc.RecipientID, recipientName, actor, now); err != nil {
				return err
			}
		}

		var requests []models.Request
		if err := tx.Get(store.Requests, &requests); err != nil {
			return err
		}
		for i := range requests {
			if requests[i].ID != doc.RequestID {
				continue
			}
			entry := s.statusEntry(actor, "Completed via handover "+doc.DocumentNumber, now)
			if err := completeViaHandover(&requests[i], doc.ID, actor, entry); err != nil {
				return err
			}
			break
		}

		out = *doc
		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		if err := tx.Put(store.Requests, requests); err != nil {
			return err
		}
		return tx.Put(store.Handovers, docs)
	})
	if err != nil {
		return nil, err
	}
	if out.Status == models.DocCompleted {
		s.notify.Notify(Event{Recipient: out.RecipientID, Type: "handover_completed", ReferenceID: out.ID})
	}
	return &out, nil
}

// ListDismantles returns all dismantle documents.
func (s *Service) ListDismantles(ctx context.Context) ([]models.Dismantle, error) {
	var docs []models.Dismantle
	if err := s.store.Get(ctx, store.Dismantles, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CreateDismantle opens a removal job for in-use assets at a customer site.
func (s *Service) CreateDismantle(ctx context.Context, actor models.Actor, customerID, customerName, siteLocation string, assetIDs []string) (*models.Dismantle, error) {
	if err := requirePermission(actor, permission.AssetsDismantle); err != nil {
		return nil, err
	}
	if len(assetIDs) == 0 {
		return nil, validationf("a dismantle needs at least one asset")
	}

	now := s.now()
	number, err := s.docnum(ctx, docnum.PrefixDismantle, now)
	if err != nil {
		return nil, err
	}

	var doc models.Dismantle
	err = s.store.Update(ctx, []string{store.Dismantles, store.Assets}, func(tx store.Tx) error {
		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		var conflicts []string
		for _, assetID := range assetIDs {
			i := assetIndex(assets, assetID)
			if i < 0 {
				return &NotFoundError{Collection: store.Assets, ID: assetID}
			}
			if assets[i].Status != models.AssetInUse {
				conflicts = append(conflicts, assetID)
			}
		}
		if len(conflicts) > 0 {
			return &ConflictError{EntityIDs: conflicts, Msg: "assets not in use"}
		}

		var docs []models.Dismantle
		if err := tx.Get(store.Dismantles, &docs); err != nil {
			return err
		}
		doc = models.Dismantle{
			ID:             number,
			DocumentNumber: number,
			CustomerID:     customerID,
			CustomerName:   customerName,
			SiteLocation:   siteLocation,
			AssetIDs:       assetIDs,
			Status:         models.DocPending,
			RequestedBy:    &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		docs = append(docs, doc)
		return tx.Put(store.Dismantles, docs)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CompleteDismantle confirms execution: the assets come back to storage and
// each gets a back-reference to this document.
func (s *Service) CompleteDismantle(ctx context.Context, actor models.Actor, dismantleID string) (*models.Dismantle, error) {
	if err := requirePermission(actor, permission.AssetsDismantle); err != nil {
		return nil, err
	}

	now := s.now()
	var out models.Dismantle
	err := s.store.Update(ctx, []string{store.Dismantles, store.Assets}, func(tx store.Tx) error {
		var docs []models.Dismantle
		if err := tx.Get(store.Dismantles, &docs); err != nil {
			return err
		}
		var doc *models.Dismantle
		for i := range docs {
			if docs[i].ID == dismantleID {
				doc = &docs[i]
				break
			}
		}
		if doc == nil {
			return &NotFoundError{Collection: store.Dismantles, ID: dismantleID}
		}
		if doc.Status != models.DocPending {
			return validationf("dismantle completion requires PENDING, document is %s", doc.Status)
		}

		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		for _, assetID := range doc.AssetIDs {
			i := assetIndex(assets, assetID)
			if i < 0 {
				return invariantf("dismantle %s references missing asset %s", dismantleID, assetID)
			}
			storeAsset(&assets[i], "", "Dismantled from "+doc.SiteLocation, actor, now)
			id := doc.ID
			assets[i].DismantleID = &id
		}

		doc.Status = models.DocCompleted
		doc.ExecutedBy = &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now}
		doc.UpdatedAt = now
		out = *doc

		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		return tx.Put(store.Dismantles, docs)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInstallations returns all installation documents.
func (s *Service) ListInstallations(ctx context.Context) ([]models.Installation, error) {
	var docs []models.Installation
	if err := s.store.Get(ctx, store.Installations, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// CreateInstallation places in-storage assets at a customer site. The same
// availability rule as loan assignment applies: every asset must be
// IN_STORAGE at transaction time or the whole call fails naming the
// conflicts.
func (s *Service) CreateInstallation(ctx context.Context, actor models.Actor, customerID, customerName, siteLocation string, assetIDs []string) (*models.Installation, error) {
	if err := requirePermission(actor, permission.AssetsInstall); err != nil {
		return nil, err
	}
	if len(assetIDs) == 0 {
		return nil, validationf("an installation needs at least one asset")
	}

	now := s.now()
	number, err := s.docnum(ctx, docnum.PrefixInstallation, now)
	if err != nil {
		return nil, err
	}

	var doc models.Installation
	err = s.store.Update(ctx, []string{store.Installations, store.Assets}, func(tx store.Tx) error {
		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		var conflicts []string
		indices := make([]int, 0, len(assetIDs))
		for _, assetID := range assetIDs {
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
			return &ConflictError{EntityIDs: conflicts, Msg: "assets no longer available"}
		}

		for _, i := range indices {
			a := &assets[i]
			a.Status = models.AssetInUse
			a.CurrentUser = &customerID
			a.Location = siteLocation
			a.ActivityLog = append(a.ActivityLog, s.statusEntry(actor, "Installed at "+siteLocation, now))
			stamp(a, actor, now)
		}

		var docs []models.Installation
		if err := tx.Get(store.Installations, &docs); err != nil {
			return err
		}
		doc = models.Installation{
			ID:             number,
			DocumentNumber: number,
			CustomerID:     customerID,
			CustomerName:   customerName,
			SiteLocation:   siteLocation,
			AssetIDs:       assetIDs,
			Status:         models.DocInProgress,
			RequestedBy:    &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		docs = append(docs, doc)

		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		return tx.Put(store.Installations, docs)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CompleteInstallation records the installer and acknowledger signatures.
func (s *Service) CompleteInstallation(ctx context.Context, actor models.Actor, installationID string) (*models.Installation, error) {
	if err := requirePermission(actor, permission.AssetsInstall); err != nil {
		return nil, err
	}

	now := s.now()
	var out models.Installation
	err := s.store.Update(ctx, []string{store.Installations}, func(tx store.Tx) error {
		var docs []models.Installation
		if err := tx.Get(store.Installations, &docs); err != nil {
			return err
		}
		for i := range docs {
			if docs[i].ID != installationID {
				continue
			}
			doc := &docs[i]
			if doc.Status != models.DocInProgress {
				return validationf("installation completion requires IN_PROGRESS, document is %s", doc.Status)
			}
			doc.Status = models.DocCompleted
			doc.InstalledBy = &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now}
			doc.UpdatedAt = now
			out = *doc
			return tx.Put(store.Installations, docs)
		}
		return &NotFoundError{Collection: store.Installations, ID: installationID}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMaintenance returns all maintenance documents.
func (s *Service) ListMaintenance(ctx context.Context) ([]models.Maintenance, error) {
	var docs []models.Maintenance
	if err := s.store.Get(ctx, store.Maintenance, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// ReportRepair opens a repair cycle. In-house repairs mark the asset
// UNDER_REPAIR; vendor repairs mark it OUT_FOR_REPAIR. The holder reference
// is kept so the asset can go back where it was.
func (s *Service) ReportRepair(ctx context.Context, actor models.Actor, assetID string, kind models.MaintenanceKind, problem string) (*models.Maintenance, error) {
	if err := requirePermission(actor, permission.AssetsRepairReport); err != nil {
		return nil, err
	}
	if problem == "" {
		return nil, validationf("a problem description is required")
	}
	target := models.AssetUnderRepair
	if kind == models.MaintenanceVendor {
		target = models.AssetOutForRepair
	} else if kind != models.MaintenanceInHouse {
		return nil, validationf("unknown maintenance kind %q", kind)
	}

	now := s.now()
	number, err := s.docnum(ctx, docnum.PrefixMaintenance, now)
	if err != nil {
		return nil, err
	}

	var doc models.Maintenance
	err = s.store.Update(ctx, []string{store.Maintenance, store.Assets}, func(tx store.Tx) error {
		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		i := assetIndex(assets, assetID)
		if i < 0 {
			return &NotFoundError{Collection: store.Assets, ID: assetID}
		}
		a := &assets[i]
		switch a.Status {
		case models.AssetInStorage, models.AssetInUse, models.AssetDamaged:
		default:
			return &ConflictError{EntityIDs: []string{assetID}, Msg: "asset not available for repair"}
		}
		a.Status = target
		a.ActivityLog = append(a.ActivityLog, s.statusEntry(actor, "Repair reported: "+problem, now))
		stamp(a, actor, now)

		var docs []models.Maintenance
		if err := tx.Get(store.Maintenance, &docs); err != nil {
			return err
		}
		doc = models.Maintenance{
			ID:             number,
			DocumentNumber: number,
			AssetID:        assetID,
			Kind:           kind,
			Problem:        problem,
			Status:         models.DocInProgress,
			ReportedBy:     &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		docs = append(docs, doc)

		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		return tx.Put(store.Maintenance, docs)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CompleteRepair closes a repair cycle. A repaired asset goes back to its
// holder if it had one, to storage otherwise; writeOff marks it DAMAGED.
func (s *Service) CompleteRepair(ctx context.Context, actor models.Actor, maintenanceID, resolution, condition string, writeOff bool) (*models.Maintenance, error) {
	if err := requirePermission(actor, permission.AssetsRepairManage); err != nil {
		return nil, err
	}

	now := s.now()
	var out models.Maintenance
	err := s.store.Update(ctx, []string{store.Maintenance, store.Assets}, func(tx store.Tx) error {
		var docs []models.Maintenance
		if err := tx.Get(store.Maintenance, &docs); err != nil {
			return err
		}
		var doc *models.Maintenance
		for i := range docs {
			if docs[i].ID == maintenanceID {
				doc = &docs[i]
				break
			}
		}
		if doc == nil {
			return &NotFoundError{Collection: store.Maintenance, ID: maintenanceID}
		}
		if doc.Status != models.DocInProgress {
			return validationf("repair completion requires IN_PROGRESS, document is %s", doc.Status)
		}

		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		i := assetIndex(assets, doc.AssetID)
		if i < 0 {
			return invariantf("maintenance %s references missing asset %s", maintenanceID, doc.AssetID)
		}
		a := &assets[i]
		switch {
		case writeOff:
			a.Status = models.AssetDamaged
			a.ActivityLog = append(a.ActivityLog, s.statusEntry(actor, "Written off: "+resolution, now))
		case a.CurrentUser != nil:
			a.Status = models.AssetInUse
			a.ActivityLog = append(a.ActivityLog, s.statusEntry(actor, "Repaired, back with holder", now))
		default:
			a.Status = models.AssetInStorage
			a.Location = "Warehouse"
			a.ActivityLog = append(a.ActivityLog, s.statusEntry(actor, "Repaired, back in storage", now))
		}
		if condition != "" {
			a.Condition = condition
		}
		stamp(a, actor, now)

		doc.Status = models.DocCompleted
		doc.Resolution = resolution
		doc.ResultCondition = condition
		doc.HandledBy = &models.Signature{UserID: actor.ID, Name: actor.Name, SignedAt: now}
		doc.UpdatedAt = now
		out = *doc

		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		return tx.Put(store.Maintenance, docs)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
