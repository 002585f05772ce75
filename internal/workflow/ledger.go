package workflow

import (
	"context"
	"fmt"
	"time"

	"arka-asset-api/internal/docnum"
	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"
)

// Asset ledger operations. Every workflow transition funnels its asset
// mutations through the helpers here so the status/holder/location invariant
// is enforced in one place.

// ListAssets returns the ledger.
func (s *Service) ListAssets(ctx context.Context) ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.store.Get(ctx, store.Assets, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// GetAsset returns one asset by id.
func (s *Service) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	assets, err := s.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		if assets[i].ID == id {
			return &assets[i], nil
		}
	}
	return nil, &NotFoundError{Collection: store.Assets, ID: id}
}

// RegisterAsset enters a single asset directly into storage.
func (s *Service) RegisterAsset(ctx context.Context, actor models.Actor, in models.CreateAssetRequest) (*models.Asset, error) {
	if err := requirePermission(actor, permission.AssetsCreate); err != nil {
		return nil, err
	}
	if in.Category == "" || in.Type == "" {
		return nil, validationf("category and type are required")
	}

	now := s.now()
	number, err := s.docnum(ctx, docnum.PrefixAsset, now)
	if err != nil {
		return nil, err
	}
	asset := newAsset(number, in, actor, now)

	err = s.store.Update(ctx, []string{store.Assets}, func(tx store.Tx) error {
		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		assets = append(assets, asset)
		return tx.Put(store.Assets, assets)
	})
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// UpdateAsset edits asset master data. Status never moves here.
func (s *Service) UpdateAsset(ctx context.Context, actor models.Actor, id string, in models.UpdateAssetRequest) (*models.Asset, error) {
	if err := requirePermission(actor, permission.AssetsEdit); err != nil {
		return nil, err
	}

	var out models.Asset
	err := s.store.Update(ctx, []string{store.Assets}, func(tx store.Tx) error {
		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		i := assetIndex(assets, id)
		if i < 0 {
			return &NotFoundError{Collection: store.Assets, ID: id}
		}
		a := &assets[i]
		if in.Category != nil {
			a.Category = *in.Category
		}
		if in.Type != nil {
			a.Type = *in.Type
		}
		if in.Brand != nil {
			a.Brand = in.Brand
		}
		if in.Model != nil {
			a.Model = in.Model
		}
		if in.SerialNumber != nil {
			a.SerialNumber = in.SerialNumber
		}
		if in.Condition != nil {
			a.Condition = *in.Condition
		}
		if in.Location != nil {
			a.Location = *in.Location
		}
		stamp(a, actor, s.now())
		out = *a
		return tx.Put(store.Assets, assets)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DecommissionAsset retires an asset. Only in-storage or damaged assets may
// be decommissioned; assets in someone's hands must come back first.
func (s *Service) DecommissionAsset(ctx context.Context, actor models.Actor, id, reason string) (*models.Asset, error) {
	if err := requirePermission(actor, permission.AssetsDelete); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, validationf("decommission reason is required")
	}

	var out models.Asset
	err := s.store.Update(ctx, []string{store.Assets}, func(tx store.Tx) error {
		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}
		i := assetIndex(assets, id)
		if i < 0 {
			return &NotFoundError{Collection: store.Assets, ID: id}
		}
		a := &assets[i]
		switch a.Status {
		case models.AssetInStorage, models.AssetDamaged:
		default:
			return &ConflictError{EntityIDs: []string{id}, Msg: "asset not in a decommissionable state"}
		}
		now := s.now()
		a.Status = models.AssetDecommissioned
		a.CurrentUser = nil
		a.Location = "Decommissioned"
		a.ActivityLog = append(a.ActivityLog, s.statusEntry(actor, "Decommissioned: "+reason, now))
		stamp(a, actor, now)
		out = *a
		return tx.Put(store.Assets, assets)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// newAsset builds a fresh in-storage asset record.
func newAsset(id string, in models.CreateAssetRequest, actor models.Actor, now time.Time) models.Asset {
	condition := in.Condition
	if condition == "" {
		condition = "Good"
	}
	location := in.Location
	if location == "" {
		location = "Warehouse"
	}
	return models.Asset{
		ID:            id,
		Category:      in.Category,
		Type:          in.Type,
		Brand:         in.Brand,
		Model:         in.Model,
		SerialNumber:  in.SerialNumber,
		Status:        models.AssetInStorage,
		Condition:     condition,
		Location:      location,
		PONumber:      in.PONumber,
		WoRoIntNumber: in.WoRoIntNumber,
		ActivityLog: []models.ActivityEntry{{
			ID:        newEntryID(),
			Type:      models.ActivityStatusChange,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Message:   "Registered",
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
		UpdatedBy: actor.ID,
	}
}

func assetIndex(assets []models.Asset, id string) int {
	for i := range assets {
		if assets[i].ID == id {
			return i
		}
	}
	return -1
}

func stamp(a *models.Asset, actor models.Actor, now time.Time) {
	a.UpdatedAt = now
	a.UpdatedBy = actor.ID
}

// lendAsset flips an in-storage asset to a holder. Callers have already
// verified the asset is IN_STORAGE; this re-checks as a final guard.
func lendAsset(a *models.Asset, holderID, holderName string, actor models.Actor, now time.Time) error {
	if a.Status != models.AssetInStorage {
		return &ConflictError{EntityIDs: []string{a.ID}, Msg: "asset not in storage"}
	}
	a.Status = models.AssetInUse
	a.CurrentUser = &holderID
	a.Location = "With " + holderName
	a.ActivityLog = append(a.ActivityLog, models.ActivityEntry{
		ID:        newEntryID(),
		Type:      models.ActivityStatusChange,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Message:   fmt.Sprintf("Assigned to %s", holderName),
		CreatedAt: now,
	})
	stamp(a, actor, now)
	return nil
}

// storeAsset returns an asset to the warehouse, clearing its holder.
func storeAsset(a *models.Asset, condition, message string, actor models.Actor, now time.Time) {
	a.Status = models.AssetInStorage
	a.CurrentUser = nil
	a.Location = "Warehouse"
	if condition != "" {
		a.Condition = condition
	}
	a.ActivityLog = append(a.ActivityLog, models.ActivityEntry{
		ID:        newEntryID(),
		Type:      models.ActivityStatusChange,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Message:   message,
		CreatedAt: now,
	})
	stamp(a, actor, now)
}
