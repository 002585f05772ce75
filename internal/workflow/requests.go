package workflow

import (
	"context"
	"fmt"

	"arka-asset-api/internal/docnum"
	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"
)

// Procurement request state machine. Stages move strictly along the edges in
// models.requestEdges; REJECTED and CANCELLED divert from any non-terminal
// stage. Every operation re-reads the request inside the store transaction
// before validating.

// ListRequests returns all procurement requests.
func (s *Service) ListRequests(ctx context.Context) ([]models.Request, error) {
	var requests []models.Request
	if err := s.store.Get(ctx, store.Requests, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// GetRequest returns one request by id.
func (s *Service) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	requests, err := s.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if requests[i].ID == id {
			return &requests[i], nil
		}
	}
	return nil, &NotFoundError{Collection: store.Requests, ID: id}
}

// CreateRequest opens a new procurement request at PENDING.
func (s *Service) CreateRequest(ctx context.Context, actor models.Actor, in models.CreateRequestInput) (*models.Request, error) {
	if err := requirePermission(actor, permission.RequestsCreate); err != nil {
		return nil, err
	}
	if len(in.Items) == 0 {
		return nil, validationf("a request needs at least one item")
	}
	for _, it := range in.Items {
		if it.Name == "" || it.Quantity <= 0 {
			return nil, validationf("item %q must have a name and positive quantity", it.ID)
		}
	}
	switch in.Order.Type {
	case models.OrderRegular:
	case models.OrderUrgent:
		if in.Order.NeededBy == nil {
			return nil, validationf("urgent orders require a needed-by date")
		}
	case models.OrderProjectBased:
		if in.Order.ProjectName == "" || in.Order.ProjectCode == "" {
			return nil, validationf("project-based orders require project name and code")
		}
	default:
		return nil, validationf("unknown order type %q", in.Order.Type)
	}

	now := s.now()
	number, err := s.docnum(ctx, docnum.PrefixRequest, now)
	if err != nil {
		return nil, err
	}

	items := make([]models.RequestItem, len(in.Items))
	copy(items, in.Items)
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = fmt.Sprintf("%s-%d", number, i+1)
		}
	}

	req := models.Request{
		ID:             number,
		DocumentNumber: number,
		RequesterID:    actor.ID,
		RequesterName:  actor.Name,
		Division:       in.Division,
		RequestDate:    now,
		Status:         models.RequestPending,
		Order:          in.Order,
		Items:          items,
		ActivityLog:    []models.ActivityEntry{s.statusEntry(actor, "Request submitted", now)},
		CreatedAt:      now,
		UpdatedAt:      now,
		UpdatedBy:      actor.ID,
	}

	err = s.store.Update(ctx, []string{store.Requests}, func(tx store.Tx) error {
		var requests []models.Request
		if err := tx.Get(store.Requests, &requests); err != nil {
			return err
		}
		requests = append(requests, req)
		return tx.Put(store.Requests, requests)
	})
	if err != nil {
		return nil, err
	}

	s.notify.Notify(Event{Recipient: permission.RoleLogistic, Type: "request_submitted", ReferenceID: req.ID})
	return &req, nil
}

// mutateRequest runs fn against the freshly read request inside a store
// transaction. fn mutates in place; a non-nil error discards everything.
func (s *Service) mutateRequest(ctx context.Context, id string, fn func(req *models.Request) error) (*models.Request, error) {
	var out models.Request
	err := s.store.Update(ctx, []string{store.Requests}, func(tx store.Tx) error {
		var requests []models.Request
		if err := tx.Get(store.Requests, &requests); err != nil {
			return err
		}
		for i := range requests {
			if requests[i].ID != id {
				continue
			}
			if err := fn(&requests[i]); err != nil {
				return err
			}
			out = requests[i]
			return tx.Put(store.Requests, requests)
		}
		return &NotFoundError{Collection: store.Requests, ID: id}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// advance moves a request along its single legal forward edge, failing on
// anything else.
func advance(req *models.Request, to models.RequestStatus) error {
	if !models.CanTransitionRequest(req.Status, to) {
		return validationf("cannot move request from %s to %s", req.Status, to)
	}
	req.Status = to
	return nil
}

// SubmitLogisticApproval moves PENDING to LOGISTIC_APPROVED.
func (s *Service) SubmitLogisticApproval(ctx context.Context, actor models.Actor, requestID string) (*models.Request, error) {
	if err := requirePermission(actor, permission.RequestsApproveLogistic); err != nil {
		return nil, err
	}
	req, err := s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if req.Status != models.RequestPending {
			return validationf("logistic approval requires PENDING, request is %s", req.Status)
		}
		if err := advance(req, models.RequestLogisticApproved); err != nil {
			return err
		}
		now := s.now()
		req.ActivityLog = append(req.ActivityLog, s.statusEntry(actor, "Approved by logistics", now))
		req.UpdatedAt = now
		req.UpdatedBy = actor.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(Event{Recipient: permission.RolePurchase, Type: "request_logistic_approved", ReferenceID: requestID})
	return req, nil
}

// ReviseOrReject records per-item decisions from PENDING or LOGISTIC_APPROVED.
// If every item ends up rejected the request moves to REJECTED (a reason is
// then mandatory); otherwise the stage stays put with itemStatuses populated
// and a revision entry summarizing original vs approved quantities.
func (s *Service) ReviseOrReject(ctx context.Context, actor models.Actor, requestID string, decisions []models.ItemDecision, reason string) (*models.Request, error) {
	if err := requirePermission(actor, permission.RequestsApproveLogistic); err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, validationf("at least one item decision is required")
	}

	req, err := s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if req.Status != models.RequestPending && req.Status != models.RequestLogisticApproved {
			return validationf("revision requires PENDING or LOGISTIC_APPROVED, request is %s", req.Status)
		}

		byID := make(map[string]models.RequestItem, len(req.Items))
		for _, it := range req.Items {
			byID[it.ID] = it
		}

		if req.ItemStatuses == nil {
			req.ItemStatuses = make(map[string]models.ItemStatus, len(decisions))
		}
		summary := "Revision:"
		for _, d := range decisions {
			item, ok := byID[d.ItemID]
			if !ok {
				return invariantf("decision references unknown item %q", d.ItemID)
			}
			if d.ApprovedQuantity < 0 {
				return validationf("approved quantity for %q cannot be negative", d.ItemID)
			}
			if d.ApprovedQuantity > item.Quantity {
				return validationf("approved quantity %d for %q exceeds requested %d", d.ApprovedQuantity, d.ItemID, item.Quantity)
			}

			status := models.ItemApproved
			switch {
			case d.ApprovedQuantity == 0:
				status = models.ItemRejected
			case d.ApprovedQuantity < item.Quantity:
				status = models.ItemPartiallyApproved
			}
			if status == models.ItemRejected && d.Reason == "" && reason == "" {
				return validationf("rejecting item %q requires a reason", d.ItemID)
			}
			req.ItemStatuses[d.ItemID] = models.ItemStatus{
				Status:           status,
				ApprovedQuantity: d.ApprovedQuantity,
				Reason:           d.Reason,
			}
			summary += fmt.Sprintf(" %s %d->%d;", item.Name, item.Quantity, d.ApprovedQuantity)
		}

		allRejected := true
		for _, it := range req.Items {
			if !req.ItemRejected(it.ID) {
				allRejected = false
				break
			}
		}

		now := s.now()
		if allRejected {
			if reason == "" {
				return validationf("rejecting a request requires a reason")
			}
			if err := advance(req, models.RequestRejected); err != nil {
				return err
			}
			req.RejectionReason = reason
			req.ActivityLog = append(req.ActivityLog, s.statusEntry(actor, "Rejected: "+reason, now))
		} else {
			req.ActivityLog = append(req.ActivityLog, models.ActivityEntry{
				ID:        newEntryID(),
				Type:      models.ActivityRevision,
				ActorID:   actor.ID,
				ActorName: actor.Name,
				Message:   summary,
				CreatedAt: now,
			})
		}
		req.UpdatedAt = now
		req.UpdatedBy = actor.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(Event{Recipient: req.RequesterID, Type: "request_revised", ReferenceID: requestID})
	return req, nil
}

// validatePurchaseDetails checks purchase completeness over non-rejected items.
func validatePurchaseDetails(req *models.Request) error {
	var missing []string
	for _, it := range req.Items {
		if req.ItemRejected(it.ID) {
			continue
		}
		pd, ok := req.PurchaseDetails[it.ID]
		if !ok || !pd.Complete() {
			missing = append(missing, it.Name)
		}
	}
	if len(missing) > 0 {
		return validationf("incomplete purchase details for: %v", missing)
	}
	return nil
}

// SubmitForFinalApproval attaches purchase details and moves
// LOGISTIC_APPROVED to AWAITING_CEO_APPROVAL. Fails without state change
// unless every non-rejected item carries a complete purchase record.
func (s *Service) SubmitForFinalApproval(ctx context.Context, actor models.Actor, requestID string, purchaseByItem map[string]models.PurchaseDetail) (*models.Request, error) {
	if err := requirePermission(actor, permission.RequestsApprovePurchase); err != nil {
		return nil, err
	}
	req, err := s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if req.Status != models.RequestLogisticApproved {
			return validationf("final submission requires LOGISTIC_APPROVED, request is %s", req.Status)
		}
		for itemID := range purchaseByItem {
			found := false
			for _, it := range req.Items {
				if it.ID == itemID {
					found = true
					break
				}
			}
			if !found {
				return invariantf("purchase detail references unknown item %q", itemID)
			}
		}
		if req.PurchaseDetails == nil {
			req.PurchaseDetails = make(map[string]models.PurchaseDetail, len(purchaseByItem))
		}
		for itemID, pd := range purchaseByItem {
			req.PurchaseDetails[itemID] = pd
		}
		if err := validatePurchaseDetails(req); err != nil {
			return err
		}
		if err := advance(req, models.RequestAwaitingCEO); err != nil {
			return err
		}
		now := s.now()
		req.ActivityLog = append(req.ActivityLog, s.statusEntry(actor, "Submitted for final approval", now))
		req.UpdatedAt = now
		req.UpdatedBy = actor.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(Event{Recipient: permission.RoleCEO, Type: "request_awaiting_final_approval", ReferenceID: requestID})
	return req, nil
}

// FinalApprove moves AWAITING_CEO_APPROVAL to APPROVED, re-checking purchase
// completeness.
func (s *Service) FinalApprove(ctx context.Context, actor models.Actor, requestID string) (*models.Request, error) {
	if err := requirePermission(actor, permission.RequestsApproveFinal); err != nil {
		return nil, err
	}
	req, err := s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if req.Status != models.RequestAwaitingCEO {
			return validationf("final approval requires AWAITING_CEO_APPROVAL, request is %s", req.Status)
		}
		if err := validatePurchaseDetails(req); err != nil {
			return err
		}
		if err := advance(req, models.RequestApproved); err != nil {
			return err
		}
		now := s.now()
		req.ActivityLog = append(req.ActivityLog, s.statusEntry(actor, "Final approval granted", now))
		req.UpdatedAt = now
		req.UpdatedBy = actor.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(Event{Recipient: req.RequesterID, Type: "request_approved", ReferenceID: requestID})
	return req, nil
}

// progressStage is the shared guarded status write behind the simple
// procurement progress steps.
func (s *Service) progressStage(ctx context.Context, actor models.Actor, requestID string, from, to models.RequestStatus, message string) (*models.Request, error) {
	// Purchase owns these stages; logistics may also move them along.
	if !actor.Can(permission.RequestsApprovePurchase) && !actor.Can(permission.RequestsApproveLogistic) {
		return nil, &ForbiddenError{Permission: permission.RequestsApprovePurchase}
	}
	return s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if req.Status != from {
			return validationf("%s requires %s, request is %s", to, from, req.Status)
		}
		if err := advance(req, to); err != nil {
			return err
		}
		now := s.now()
		req.ActivityLog = append(req.ActivityLog, s.statusEntry(actor, message, now))
		req.UpdatedAt = now
		req.UpdatedBy = actor.ID
		return nil
	})
}

// StartProcurement moves APPROVED to PURCHASING.
func (s *Service) StartProcurement(ctx context.Context, actor models.Actor, requestID string) (*models.Request, error) {
	return s.progressStage(ctx, actor, requestID, models.RequestApproved, models.RequestPurchasing, "Procurement started")
}

// AdvanceDelivery moves PURCHASING to IN_DELIVERY.
func (s *Service) AdvanceDelivery(ctx context.Context, actor models.Actor, requestID string) (*models.Request, error) {
	return s.progressStage(ctx, actor, requestID, models.RequestPurchasing, models.RequestInDelivery, "Order shipped")
}

// MarkArrived moves IN_DELIVERY to ARRIVED.
func (s *Service) MarkArrived(ctx context.Context, actor models.Actor, requestID string) (*models.Request, error) {
	return s.progressStage(ctx, actor, requestID, models.RequestInDelivery, models.RequestArrived, "Order arrived")
}

// RegisterArrivedAssets creates ledger records for arrived units and tracks
// per-item registration progress. The request advances to AWAITING_HANDOVER
// only once every approved unit across all items has an asset. Partial calls
// are fine.
func (s *Service) RegisterArrivedAssets(ctx context.Context, actor models.Actor, requestID string, unitsByItem map[string][]models.CreateAssetRequest) (*models.Request, error) {
	if err := requirePermission(actor, permission.AssetsCreate); err != nil {
		return nil, err
	}
	if len(unitsByItem) == 0 {
		return nil, validationf("no assets to register")
	}

	now := s.now()
	var out models.Request
	err := s.store.Update(ctx, []string{store.Requests, store.Assets}, func(tx store.Tx) error {
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
		if req.Status != models.RequestArrived {
			return validationf("asset registration requires ARRIVED, request is %s", req.Status)
		}

		var assets []models.Asset
		if err := tx.Get(store.Assets, &assets); err != nil {
			return err
		}

		if req.RegisteredUnits == nil {
			req.RegisteredUnits = make(map[string]int)
		}
		seq := len(assets)
		for itemID, units := range unitsByItem {
			approved := req.ApprovedQuantity(itemID)
			if approved == 0 {
				return invariantf("asset registration references unknown or rejected item %q", itemID)
			}
			if req.RegisteredUnits[itemID]+len(units) > approved {
				return validationf("registering %d units for item %q exceeds approved %d", len(units), itemID, approved)
			}
			for _, unit := range units {
				seq++
				unit.WoRoIntNumber = &req.DocumentNumber
				if unit.PONumber == nil {
					if pd, ok := req.PurchaseDetails[itemID]; ok {
						po := pd.PONumber
						unit.PONumber = &po
					}
				}
				asset := newAsset(fmt.Sprintf("AST/%s-%d", req.DocumentNumber, seq), unit, actor, now)
				assets = append(assets, asset)
			}
			req.RegisteredUnits[itemID] += len(units)
		}

		complete := true
		for _, it := range req.Items {
			approved := req.ApprovedQuantity(it.ID)
			if approved > 0 && req.RegisteredUnits[it.ID] < approved {
				complete = false
				break
			}
		}
		if complete {
			if err := advance(req, models.RequestAwaitingHandover); err != nil {
				return err
			}
			req.ActivityLog = append(req.ActivityLog, s.statusEntry(actor, "All units registered, awaiting handover", now))
		}
		req.UpdatedAt = now
		req.UpdatedBy = actor.ID
		out = *req

		if err := tx.Put(store.Assets, assets); err != nil {
			return err
		}
		return tx.Put(store.Requests, requests)
	})
	if err != nil {
		return nil, err
	}
	if out.Status == models.RequestAwaitingHandover {
		s.notify.Notify(Event{Recipient: out.RequesterID, Type: "request_awaiting_handover", ReferenceID: requestID})
	}
	return &out, nil
}

// completeViaHandover closes the request once its handover document reaches
// COMPLETED. Called by the handover flow inside its own transaction.
func completeViaHandover(req *models.Request, handoverID string, actor models.Actor, entry models.ActivityEntry) error {
	if req.Status != models.RequestAwaitingHandover {
		return validationf("handover completion requires AWAITING_HANDOVER, request is %s", req.Status)
	}
	if err := advance(req, models.RequestCompleted); err != nil {
		return err
	}
	req.HandoverID = &handoverID
	req.ActivityLog = append(req.ActivityLog, entry)
	req.UpdatedAt = entry.CreatedAt
	req.UpdatedBy = actor.ID
	return nil
}

// CancelRequest diverts a request to CANCELLED. The original requester may
// cancel only at PENDING; actors holding requests:cancel may cancel any
// non-terminal stage.
func (s *Service) CancelRequest(ctx context.Context, actor models.Actor, requestID, reason string) (*models.Request, error) {
	if reason == "" {
		return nil, validationf("cancellation reason is required")
	}
	return s.mutateRequest(ctx, requestID, func(req *models.Request) error {
		if req.Status.Terminal() {
			return validationf("request is already %s", req.Status)
		}
		switch {
		case actor.ID == req.RequesterID && req.Status == models.RequestPending:
			// The requester can always withdraw a pending request.
		case actor.Can(permission.RequestsCancel):
		case actor.ID == req.RequesterID:
			return validationf("requester may only cancel while PENDING")
		default:
			return &ForbiddenError{Permission: permission.RequestsCancel}
		}
		if err := advance(req, models.RequestCancelled); err != nil {
			return err
		}
		now := s.now()
		req.RejectionReason = reason
		req.ActivityLog = append(req.ActivityLog, s.statusEntry(actor, "Cancelled: "+reason, now))
		req.UpdatedAt = now
		req.UpdatedBy = actor.ID
		return nil
	})
}
