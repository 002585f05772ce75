package models

import "time"

// LoanStatus is the persisted stage of a loan request. OVERDUE additionally
// exists as a read-time projection; see ProjectLoanStatus.
type LoanStatus string

const (
	LoanPending         LoanStatus = "PENDING"
	LoanApproved        LoanStatus = "APPROVED"
	LoanRejected        LoanStatus = "REJECTED"
	LoanOnLoan          LoanStatus = "ON_LOAN"
	LoanAwaitingReturn  LoanStatus = "AWAITING_RETURN"
	LoanReturned        LoanStatus = "RETURNED"
	LoanOverdue         LoanStatus = "OVERDUE"
)

// Terminal reports whether the loan can no longer change state.
func (s LoanStatus) Terminal() bool {
	return s == LoanReturned || s == LoanRejected
}

// LoanItem is one abstract line of a loan request; assignment binds it to
// concrete assets.
type LoanItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Brand      *string   `json:"brand,omitempty"`
	Quantity   int       `json:"quantity"`
	ReturnDate time.Time `json:"return_date"`
}

// LoanRequest is a request for temporary custody of in-storage assets.
type LoanRequest struct {
	ID             string                `json:"id"`
	DocumentNumber string                `json:"document_number"`
	RequesterID    string                `json:"requester_id"`
	RequesterName  string                `json:"requester_name,omitempty"`
	Division       string                `json:"division"`
	Purpose        string                `json:"purpose,omitempty"`
	RequestDate    time.Time             `json:"request_date"`
	Status         LoanStatus            `json:"status"`
	Items          []LoanItem            `json:"items"`
	ItemStatuses   map[string]ItemStatus `json:"item_statuses,omitempty"`
	// AssignedAssetIDs binds loan-item id to the concrete assets locked to it.
	AssignedAssetIDs map[string][]string `json:"assigned_asset_ids,omitempty"`
	// ReturnedAssetIDs is the subset of assigned assets already closed out.
	ReturnedAssetIDs []string        `json:"returned_asset_ids,omitempty"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	ActualReturnDate *time.Time      `json:"actual_return_date,omitempty"`
	ActivityLog      []ActivityEntry `json:"activity_log"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	UpdatedBy        string          `json:"updated_by"`
}

// AssignedAssets returns the flattened, deduplicated list of every asset id
// bound to this loan.
func (l *LoanRequest) AssignedAssets() []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, ids := range l.AssignedAssetIDs {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Returned reports whether an asset has already been closed out.
func (l *LoanRequest) Returned(assetID string) bool {
	for _, id := range l.ReturnedAssetIDs {
		if id == assetID {
			return true
		}
	}
	return false
}

// OutstandingAssets returns assigned assets not yet returned.
func (l *LoanRequest) OutstandingAssets() []string {
	out := []string{}
	for _, id := range l.AssignedAssets() {
		if !l.Returned(id) {
			out = append(out, id)
		}
	}
	return out
}

// ProjectLoanStatus is the single source of the OVERDUE projection: a loan
// whose persisted status is active reads as OVERDUE when any item's return
// date has passed with assets still outstanding. Never stored.
func ProjectLoanStatus(l *LoanRequest, now time.Time) LoanStatus {
	switch l.Status {
	case LoanOnLoan, LoanAwaitingReturn, LoanApproved:
	default:
		return l.Status
	}
	for _, item := range l.Items {
		if !item.ReturnDate.Before(now) {
			continue
		}
		for _, id := range l.AssignedAssetIDs[item.ID] {
			if !l.Returned(id) {
				return LoanOverdue
			}
		}
	}
	return l.Status
}

// CreateLoanInput is the payload for opening a loan request.
type CreateLoanInput struct {
	Division string     `json:"division"`
	Purpose  string     `json:"purpose,omitempty"`
	Items    []LoanItem `json:"items"`
}
