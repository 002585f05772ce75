package workflow

import (
	"context"
	"testing"

	"arka-asset-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRequestValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   models.CreateRequestInput
	}{
		{
			name: "no items",
			in:   models.CreateRequestInput{Order: models.OrderDetails{Type: models.OrderRegular}},
		},
		{
			name: "zero quantity",
			in: models.CreateRequestInput{
				Order: models.OrderDetails{Type: models.OrderRegular},
				Items: []models.RequestItem{{Name: "Laptop", Quantity: 0}},
			},
		},
		{
			name: "urgent without needed-by",
			in: models.CreateRequestInput{
				Order: models.OrderDetails{Type: models.OrderUrgent},
				Items: []models.RequestItem{{Name: "Laptop", Quantity: 1}},
			},
		},
		{
			name: "project-based without code",
			in: models.CreateRequestInput{
				Order: models.OrderDetails{Type: models.OrderProjectBased, ProjectName: "Rollout"},
				Items: []models.RequestItem{{Name: "Laptop", Quantity: 1}},
			},
		},
		{
			name: "unknown order type",
			in: models.CreateRequestInput{
				Order: models.OrderDetails{Type: "SOMETHING"},
				Items: []models.RequestItem{{Name: "Laptop", Quantity: 1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateRequest(ctx, staffActor(), tt.in)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreateRequestAssignsDocumentNumberAndItemIDs(t *testing.T) {
	s := newTestService(t)
	req := newPendingRequest(t, s)

	assert.Equal(t, "REQ/2026/08/0001", req.DocumentNumber)
	assert.Equal(t, models.RequestPending, req.Status)
	for _, it := range req.Items {
		assert.NotEmpty(t, it.ID)
	}
	assert.Len(t, req.ActivityLog, 1)

	second := newPendingRequest(t, s)
	assert.Equal(t, "REQ/2026/08/0002", second.DocumentNumber)
}

func TestRequestHappyPathToArrived(t *testing.T) {
	s := newTestService(t)
	req := requestAt(t, s, models.RequestArrived)
	assert.Equal(t, models.RequestArrived, req.Status)
}

func TestRequestIllegalTransitions(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	req := requestAt(t, s, models.RequestArrived)

	// No stage repeats and no skipping backwards.
	_, err := s.SubmitLogisticApproval(ctx, logisticActor(), req.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = s.FinalApprove(ctx, ceoActor(), req.ID)
	require.ErrorAs(t, err, &verr)

	// State unchanged after the failed calls.
	got, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestArrived, got.Status)
}

func TestSubmitLogisticApprovalRequiresPermission(t *testing.T) {
	s := newTestService(t)
	req := newPendingRequest(t, s)

	_, err := s.SubmitLogisticApproval(context.Background(), staffActor(), req.ID)
	var ferr *ForbiddenError
	assert.ErrorAs(t, err, &ferr)
}

func TestReviseQuantities(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	t.Run("negative quantity rejected", func(t *testing.T) {
		req := newPendingRequest(t, s)
		_, err := s.ReviseOrReject(ctx, logisticActor(), req.ID,
			[]models.ItemDecision{{ItemID: req.Items[0].ID, ApprovedQuantity: -1}}, "")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("quantity above requested rejected", func(t *testing.T) {
		req := newPendingRequest(t, s)
		_, err := s.ReviseOrReject(ctx, logisticActor(), req.ID,
			[]models.ItemDecision{{ItemID: req.Items[0].ID, ApprovedQuantity: 5}}, "")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("partial approval keeps stage and records status", func(t *testing.T) {
		req := newPendingRequest(t, s)
		got, err := s.ReviseOrReject(ctx, logisticActor(), req.ID,
			[]models.ItemDecision{{ItemID: req.Items[0].ID, ApprovedQuantity: 1}}, "")
		require.NoError(t, err)
		assert.Equal(t, models.RequestPending, got.Status)
		assert.Equal(t, models.ItemPartiallyApproved, got.ItemStatuses[req.Items[0].ID].Status)
		assert.Equal(t, 1, got.ApprovedQuantity(req.Items[0].ID))
		// Untouched item keeps its requested quantity.
		assert.Equal(t, 1, got.ApprovedQuantity(req.Items[1].ID))
	})

	t.Run("zero quantity means rejected", func(t *testing.T) {
		req := newPendingRequest(t, s)
		got, err := s.ReviseOrReject(ctx, logisticActor(), req.ID,
			[]models.ItemDecision{{ItemID: req.Items[0].ID, ApprovedQuantity: 0, Reason: "out of budget"}}, "")
		require.NoError(t, err)
		assert.True(t, got.ItemRejected(req.Items[0].ID))
		assert.Equal(t, 0, got.ApprovedQuantity(req.Items[0].ID))
	})

	t.Run("rejecting every item needs a reason and moves to REJECTED", func(t *testing.T) {
		req := newPendingRequest(t, s)
		decisions := []models.ItemDecision{
			{ItemID: req.Items[0].ID, ApprovedQuantity: 0, Reason: "no"},
			{ItemID: req.Items[1].ID, ApprovedQuantity: 0, Reason: "no"},
		}
		_, err := s.ReviseOrReject(ctx, logisticActor(), req.ID, decisions, "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)

		got, err := s.ReviseOrReject(ctx, logisticActor(), req.ID, decisions, "nothing in scope")
		require.NoError(t, err)
		assert.Equal(t, models.RequestRejected, got.Status)
		assert.Equal(t, "nothing in scope", got.RejectionReason)
	})
}

func TestSubmitForFinalApprovalIncompleteDetails(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := requestAt(t, s, models.RequestLogisticApproved)

	// Missing PO number on the first item.
	incomplete := completePurchase("")
	_, err := s.SubmitForFinalApproval(ctx, purchaseActor(), req.ID, map[string]models.PurchaseDetail{
		req.Items[0].ID: incomplete,
		req.Items[1].ID: completePurchase("PO-2"),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// Failed submission leaves the stage where it was.
	got, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestLogisticApproved, got.Status)
}

func TestSubmitForFinalApprovalSkipsRejectedItems(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := requestAt(t, s, models.RequestLogisticApproved)

	// Reject the second line; purchase details then only need to cover the
	// first.
	_, err := s.ReviseOrReject(ctx, logisticActor(), req.ID,
		[]models.ItemDecision{{ItemID: req.Items[1].ID, ApprovedQuantity: 0, Reason: "covered by stock"}}, "")
	require.NoError(t, err)

	got, err := s.SubmitForFinalApproval(ctx, purchaseActor(), req.ID, map[string]models.PurchaseDetail{
		req.Items[0].ID: completePurchase("PO-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestAwaitingCEO, got.Status)
}

func TestTotalValuePrefersPurchasePrices(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := requestAt(t, s, models.RequestAwaitingCEO)

	got, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	// Two laptops at the purchase price plus one monitor at the purchase
	// price, not the estimates.
	assert.InDelta(t, 1500*2+1500*1, got.TotalValue(), 0.01)
}

func TestRegisterArrivedAssets(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	req := requestAt(t, s, models.RequestArrived)
	admin := adminActor()

	unit := models.CreateAssetRequest{Category: "Laptop", Type: "Notebook", SerialNumber: strPtr("SN-1")}

	t.Run("unknown item fails", func(t *testing.T) {
		_, err := s.RegisterArrivedAssets(ctx, admin, req.ID, map[string][]models.CreateAssetRequest{
			"nope": {unit},
		})
		var ierr *InvariantError
		assert.ErrorAs(t, err, &ierr)
	})

	t.Run("partial registration keeps ARRIVED", func(t *testing.T) {
		got, err := s.RegisterArrivedAssets(ctx, admin, req.ID, map[string][]models.CreateAssetRequest{
			req.Items[0].ID: {unit},
		})
		require.NoError(t, err)
		assert.Equal(t, models.RequestArrived, got.Status)
		assert.Equal(t, 1, got.RegisteredUnits[req.Items[0].ID])

		assets, err := s.ListAssets(ctx)
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, models.AssetInStorage, assets[0].Status)
		require.NotNil(t, assets[0].WoRoIntNumber)
		assert.Equal(t, req.DocumentNumber, *assets[0].WoRoIntNumber)
		require.NotNil(t, assets[0].PONumber)
		assert.Equal(t, "PO-1", *assets[0].PONumber)
	})

	t.Run("exceeding approved quantity fails", func(t *testing.T) {
		_, err := s.RegisterArrivedAssets(ctx, admin, req.ID, map[string][]models.CreateAssetRequest{
			req.Items[0].ID: {unit, unit},
		})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("final unit moves to AWAITING_HANDOVER", func(t *testing.T) {
		got, err := s.RegisterArrivedAssets(ctx, admin, req.ID, map[string][]models.CreateAssetRequest{
			req.Items[0].ID: {unit},
			req.Items[1].ID: {{Category: "Monitor", Type: "Display"}},
		})
		require.NoError(t, err)
		assert.Equal(t, models.RequestAwaitingHandover, got.Status)
	})
}

func TestCancelRequest(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	t.Run("requester may cancel while pending", func(t *testing.T) {
		req := newPendingRequest(t, s)
		got, err := s.CancelRequest(ctx, staffActor(), req.ID, "ordered twice")
		require.NoError(t, err)
		assert.Equal(t, models.RequestCancelled, got.Status)
	})

	t.Run("requester may not cancel after approval starts", func(t *testing.T) {
		req := requestAt(t, s, models.RequestLogisticApproved)
		_, err := s.CancelRequest(ctx, staffActor(), req.ID, "changed my mind")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("privileged actor may cancel any live stage", func(t *testing.T) {
		req := requestAt(t, s, models.RequestPurchasing)
		got, err := s.CancelRequest(ctx, adminActor(), req.ID, "vendor folded")
		require.NoError(t, err)
		assert.Equal(t, models.RequestCancelled, got.Status)
	})

	t.Run("terminal request cannot be cancelled", func(t *testing.T) {
		req := newPendingRequest(t, s)
		_, err := s.CancelRequest(ctx, staffActor(), req.ID, "first")
		require.NoError(t, err)
		_, err = s.CancelRequest(ctx, adminActor(), req.ID, "again")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("reason is mandatory", func(t *testing.T) {
		req := newPendingRequest(t, s)
		_, err := s.CancelRequest(ctx, staffActor(), req.ID, "")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}
