package models

import "time"

// DocStatus is the narrow lifecycle shared by the short-lived workflow
// documents (returns, handovers, dismantles, installations, maintenance).
type DocStatus string

const (
	DocPending    DocStatus = "PENDING"
	DocInProgress DocStatus = "IN_PROGRESS"
	DocCompleted  DocStatus = "COMPLETED"
	DocRejected   DocStatus = "REJECTED"
)

// Terminal reports whether the document can no longer change state.
func (s DocStatus) Terminal() bool {
	return s == DocCompleted || s == DocRejected
}

// Signature is one party's sign-off on a workflow document.
type Signature struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name,omitempty"`
	SignedAt time.Time `json:"signed_at"`
}

// AssetReturn closes out one asset of a loan. Approval moves the asset back
// to storage; rejection reverts it to the holder.
type AssetReturn struct {
	ID             string     `json:"id"`
	DocumentNumber string     `json:"document_number"`
	LoanID         string     `json:"loan_id"`
	AssetID        string     `json:"asset_id"`
	Condition      string     `json:"condition,omitempty"`
	Status         DocStatus  `json:"status"`
	ReturnedBy     *Signature `json:"returned_by,omitempty"`
	ReceivedBy     *Signature `json:"received_by,omitempty"`
	Reason         string     `json:"reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Handover is the three-party document formalizing transfer of custody of
// newly procured assets to the requesting division.
type Handover struct {
	ID             string     `json:"id"`
	DocumentNumber string     `json:"document_number"`
	RequestID      string     `json:"request_id"`
	AssetIDs       []string   `json:"asset_ids"`
	Division       string     `json:"division"`
	RecipientID    string     `json:"recipient_id"`
	Status         DocStatus  `json:"status"`
	HandedOverBy   *Signature `json:"handed_over_by,omitempty"`
	ReceivedBy     *Signature `json:"received_by,omitempty"`
	AcknowledgedBy *Signature `json:"acknowledged_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// FullySigned reports whether all three parties have signed.
func (h *Handover) FullySigned() bool {
	return h.HandedOverBy != nil && h.ReceivedBy != nil && h.AcknowledgedBy != nil
}

// Dismantle records removal of installed assets from a customer site,
// returning them to storage on completion.
type Dismantle struct {
	ID             string     `json:"id"`
	DocumentNumber string     `json:"document_number"`
	CustomerID     string     `json:"customer_id"`
	CustomerName   string     `json:"customer_name,omitempty"`
	SiteLocation   string     `json:"site_location"`
	AssetIDs       []string   `json:"asset_ids"`
	Status         DocStatus  `json:"status"`
	RequestedBy    *Signature `json:"requested_by,omitempty"`
	ExecutedBy     *Signature `json:"executed_by,omitempty"`
	AcknowledgedBy *Signature `json:"acknowledged_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Installation places assets at a customer site.
type Installation struct {
	ID             string     `json:"id"`
	DocumentNumber string     `json:"document_number"`
	CustomerID     string     `json:"customer_id"`
	CustomerName   string     `json:"customer_name,omitempty"`
	SiteLocation   string     `json:"site_location"`
	AssetIDs       []string   `json:"asset_ids"`
	Status         DocStatus  `json:"status"`
	RequestedBy    *Signature `json:"requested_by,omitempty"`
	InstalledBy    *Signature `json:"installed_by,omitempty"`
	AcknowledgedBy *Signature `json:"acknowledged_by,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// MaintenanceKind distinguishes in-house repair from vendor repair.
type MaintenanceKind string

const (
	MaintenanceInHouse MaintenanceKind = "IN_HOUSE"
	MaintenanceVendor  MaintenanceKind = "VENDOR"
)

// Maintenance tracks a repair cycle for one asset.
type Maintenance struct {
	ID             string          `json:"id"`
	DocumentNumber string          `json:"document_number"`
	AssetID        string          `json:"asset_id"`
	Kind           MaintenanceKind `json:"kind"`
	Problem        string          `json:"problem"`
	Resolution     string          `json:"resolution,omitempty"`
	// ResultCondition is noted on completion and written back to the asset.
	ResultCondition string     `json:"result_condition,omitempty"`
	Status          DocStatus  `json:"status"`
	ReportedBy      *Signature `json:"reported_by,omitempty"`
	HandledBy       *Signature `json:"handled_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
