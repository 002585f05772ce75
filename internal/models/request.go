package models

import "time"

// RequestStatus is the approval stage of a procurement request.
type RequestStatus string

const (
	RequestPending          RequestStatus = "PENDING"
	RequestLogisticApproved RequestStatus = "LOGISTIC_APPROVED"
	RequestAwaitingCEO      RequestStatus = "AWAITING_CEO_APPROVAL"
	RequestApproved         RequestStatus = "APPROVED"
	RequestPurchasing       RequestStatus = "PURCHASING"
	RequestInDelivery       RequestStatus = "IN_DELIVERY"
	RequestArrived          RequestStatus = "ARRIVED"
	RequestAwaitingHandover RequestStatus = "AWAITING_HANDOVER"
	RequestCompleted        RequestStatus = "COMPLETED"
	RequestRejected         RequestStatus = "REJECTED"
	RequestCancelled        RequestStatus = "CANCELLED"
)

// requestEdges is the legal forward transition for each stage. REJECTED and
// CANCELLED are reachable from any non-terminal stage and are handled
// separately.
var requestEdges = map[RequestStatus]RequestStatus{
	RequestPending:          RequestLogisticApproved,
	RequestLogisticApproved: RequestAwaitingCEO,
	RequestAwaitingCEO:      RequestApproved,
	RequestApproved:         RequestPurchasing,
	RequestPurchasing:       RequestInDelivery,
	RequestInDelivery:       RequestArrived,
	RequestArrived:          RequestAwaitingHandover,
	RequestAwaitingHandover: RequestCompleted,
}

// NextRequestStatus returns the single legal forward stage, if any.
func NextRequestStatus(from RequestStatus) (RequestStatus, bool) {
	next, ok := requestEdges[from]
	return next, ok
}

// CanTransitionRequest reports whether from -> to is a legal request edge.
func CanTransitionRequest(from, to RequestStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == RequestRejected || to == RequestCancelled {
		return true
	}
	return requestEdges[from] == to
}

// Terminal reports whether no further transitions are possible.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestRejected || s == RequestCancelled
}

// OrderType distinguishes the procurement variants, each with extra fields.
type OrderType string

const (
	OrderRegular      OrderType = "REGULAR"
	OrderUrgent       OrderType = "URGENT"
	OrderProjectBased OrderType = "PROJECT_BASED"
)

// OrderDetails carries the per-type extra fields of a request.
type OrderDetails struct {
	Type          OrderType  `json:"type"`
	Justification string     `json:"justification,omitempty"`
	NeededBy      *time.Time `json:"needed_by,omitempty"`    // URGENT
	ProjectName   string     `json:"project_name,omitempty"` // PROJECT_BASED
	ProjectCode   string     `json:"project_code,omitempty"` // PROJECT_BASED
}

// RequestItem is one requested line.
type RequestItem struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Brand          *string `json:"brand,omitempty"`
	Specification  *string `json:"specification,omitempty"`
	Quantity       int     `json:"quantity"`
	EstimatedPrice float64 `json:"estimated_price"`
}

// ItemDecisionStatus is the per-line approval outcome.
type ItemDecisionStatus string

const (
	ItemApproved          ItemDecisionStatus = "APPROVED"
	ItemPartiallyApproved ItemDecisionStatus = "PARTIALLY_APPROVED"
	ItemRejected          ItemDecisionStatus = "REJECTED"
)

// ItemStatus records a per-item approval override. ApprovedQuantity of zero
// always means rejected, whatever Status says.
type ItemStatus struct {
	Status           ItemDecisionStatus `json:"status"`
	ApprovedQuantity int                `json:"approved_quantity"`
	Reason           string             `json:"reason,omitempty"`
}

// Rejected reports whether this line is excluded from further processing.
func (is ItemStatus) Rejected() bool {
	return is.Status == ItemRejected || is.ApprovedQuantity == 0
}

// PurchaseDetail is the purchase record for one item, populated at the
// purchase stage. All fields are required before final submission.
type PurchaseDetail struct {
	Price         float64    `json:"price"`
	Vendor        string     `json:"vendor"`
	PONumber      string     `json:"po_number"`
	InvoiceNumber string     `json:"invoice_number"`
	PurchaseDate  *time.Time `json:"purchase_date,omitempty"`
}

// Complete reports whether every required purchase field is present.
func (pd PurchaseDetail) Complete() bool {
	return pd.Price > 0 && pd.Vendor != "" && pd.PONumber != "" &&
		pd.InvoiceNumber != "" && pd.PurchaseDate != nil
}

// Request is a procurement workflow instance.
type Request struct {
	ID              string                    `json:"id"`
	DocumentNumber  string                    `json:"document_number"`
	RequesterID     string                    `json:"requester_id"`
	RequesterName   string                    `json:"requester_name,omitempty"`
	Division        string                    `json:"division"`
	RequestDate     time.Time                 `json:"request_date"`
	Status          RequestStatus             `json:"status"`
	Order           OrderDetails              `json:"order"`
	Items           []RequestItem             `json:"items"`
	ItemStatuses    map[string]ItemStatus     `json:"item_statuses,omitempty"`
	PurchaseDetails map[string]PurchaseDetail `json:"purchase_details,omitempty"`
	// RegisteredUnits tracks partial asset registration per item id.
	RegisteredUnits map[string]int  `json:"registered_units,omitempty"`
	HandoverID      *string         `json:"handover_id,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	ActivityLog     []ActivityEntry `json:"activity_log"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	UpdatedBy       string          `json:"updated_by"`
}

// ApprovedQuantity returns the quantity that survived review for an item:
// the override if one exists, otherwise the requested quantity.
func (r *Request) ApprovedQuantity(itemID string) int {
	for _, it := range r.Items {
		if it.ID != itemID {
			continue
		}
		if is, ok := r.ItemStatuses[itemID]; ok {
			if is.Rejected() {
				return 0
			}
			return is.ApprovedQuantity
		}
		return it.Quantity
	}
	return 0
}

// ItemRejected reports whether an item was rejected during review.
func (r *Request) ItemRejected(itemID string) bool {
	if is, ok := r.ItemStatuses[itemID]; ok {
		return is.Rejected()
	}
	return false
}

// TotalValue derives the request's value: the sum of purchase-detail prices
// once any exist, otherwise the original estimate over non-rejected lines.
func (r *Request) TotalValue() float64 {
	if len(r.PurchaseDetails) > 0 {
		var total float64
		for itemID, pd := range r.PurchaseDetails {
			total += pd.Price * float64(r.ApprovedQuantity(itemID))
		}
		return total
	}
	var total float64
	for _, it := range r.Items {
		if r.ItemRejected(it.ID) {
			continue
		}
		total += it.EstimatedPrice * float64(r.ApprovedQuantity(it.ID))
	}
	return total
}

// CreateRequestInput is the payload for opening a procurement request.
type CreateRequestInput struct {
	Division string        `json:"division"`
	Order    OrderDetails  `json:"order"`
	Items    []RequestItem `json:"items"`
}

// ItemDecision is one reviewer decision within a revision pass.
type ItemDecision struct {
	ItemID           string `json:"item_id"`
	ApprovedQuantity int    `json:"approved_quantity"`
	Reason           string `json:"reason,omitempty"`
}
