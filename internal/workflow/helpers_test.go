package workflow

import (
	"context"
	"testing"
	"time"

	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"

	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

// newTestService returns a service over a fresh in-memory store with a fixed
// clock. Tests that need time to move use WithClock on their own service.
func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(store.NewMemory(), WithClock(func() time.Time { return testTime }))
}

func actorFor(id, name, role string) models.Actor {
	return models.Actor{
		ID:          id,
		Name:        name,
		Role:        role,
		Permissions: permission.MustResolver().DefaultsFor(role),
	}
}

func adminActor() models.Actor    { return actorFor("u-admin", "Admin", permission.RoleAdmin) }
func staffActor() models.Actor    { return actorFor("u-staff", "Staff", permission.RoleStaff) }
func logisticActor() models.Actor { return actorFor("u-log", "Logistics", permission.RoleLogistic) }
func purchaseActor() models.Actor { return actorFor("u-pur", "Purchasing", permission.RolePurchase) }
func ceoActor() models.Actor      { return actorFor("u-ceo", "CEO", permission.RoleCEO) }

// seedAssets writes assets straight into the store, bypassing the ledger ops.
func seedAssets(t *testing.T, s *Service, assets ...models.Asset) {
	t.Helper()
	err := s.store.Update(context.Background(), []string{store.Assets}, func(tx store.Tx) error {
		var existing []models.Asset
		if err := tx.Get(store.Assets, &existing); err != nil {
			return err
		}
		existing = append(existing, assets...)
		return tx.Put(store.Assets, existing)
	})
	require.NoError(t, err)
}

func storedAsset(id string, status models.AssetStatus, holder *string) models.Asset {
	location := "Warehouse"
	if holder != nil {
		location = "With " + *holder
	}
	return models.Asset{
		ID:          id,
		Category:    "Laptop",
		Type:        "Notebook",
		Status:      status,
		Condition:   "Good",
		CurrentUser: holder,
		Location:    location,
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
		UpdatedBy:   "seed",
	}
}

func strPtr(s string) *string { return &s }

func completePurchase(po string) models.PurchaseDetail {
	d := testTime
	return models.PurchaseDetail{
		Price:         1500,
		Vendor:        "Acme Supplies",
		PONumber:      po,
		InvoiceNumber: "INV-1",
		PurchaseDate:  &d,
	}
}

// newPendingRequest opens a two-item request as the staff actor.
func newPendingRequest(t *testing.T, s *Service) *models.Request {
	t.Helper()
	req, err := s.CreateRequest(context.Background(), staffActor(), models.CreateRequestInput{
		Division: "Engineering",
		Order:    models.OrderDetails{Type: models.OrderRegular, Justification: "replacements"},
		Items: []models.RequestItem{
			{Name: "Laptop", Quantity: 2, EstimatedPrice: 1500},
			{Name: "Monitor", Quantity: 1, EstimatedPrice: 300},
		},
	})
	require.NoError(t, err)
	return req
}

// requestAt walks a fresh request forward to the given stage.
func requestAt(t *testing.T, s *Service, stage models.RequestStatus) *models.Request {
	t.Helper()
	ctx := context.Background()
	req := newPendingRequest(t, s)
	if stage == models.RequestPending {
		return req
	}

	steps := []struct {
		at   models.RequestStatus
		move func() (*models.Request, error)
	}{
		{models.RequestLogisticApproved, func() (*models.Request, error) {
			return s.SubmitLogisticApproval(ctx, logisticActor(), req.ID)
		}},
		{models.RequestAwaitingCEO, func() (*models.Request, error) {
			return s.SubmitForFinalApproval(ctx, purchaseActor(), req.ID, map[string]models.PurchaseDetail{
				req.Items[0].ID: completePurchase("PO-1"),
				req.Items[1].ID: completePurchase("PO-2"),
			})
		}},
		{models.RequestApproved, func() (*models.Request, error) {
			return s.FinalApprove(ctx, ceoActor(), req.ID)
		}},
		{models.RequestPurchasing, func() (*models.Request, error) {
			return s.StartProcurement(ctx, purchaseActor(), req.ID)
		}},
		{models.RequestInDelivery, func() (*models.Request, error) {
			return s.AdvanceDelivery(ctx, purchaseActor(), req.ID)
		}},
		{models.RequestArrived, func() (*models.Request, error) {
			return s.MarkArrived(ctx, purchaseActor(), req.ID)
		}},
	}
	for _, step := range steps {
		out, err := step.move()
		require.NoError(t, err)
		req = out
		if req.Status == stage {
			return req
		}
	}
	t.Fatalf("cannot build request at stage %s", stage)
	return nil
}
