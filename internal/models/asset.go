package models

import "time"

// AssetStatus is the lifecycle status of a physical asset.
type AssetStatus string

const (
	AssetInStorage      AssetStatus = "IN_STORAGE"
	AssetInUse          AssetStatus = "IN_USE"
	AssetUnderRepair    AssetStatus = "UNDER_REPAIR"
	AssetOutForRepair   AssetStatus = "OUT_FOR_REPAIR"
	AssetDamaged        AssetStatus = "DAMAGED"
	AssetDecommissioned AssetStatus = "DECOMMISSIONED"
	AssetAwaitingReturn AssetStatus = "AWAITING_RETURN"
)

// ValidAssetStatuses lists every status an asset record may carry.
var ValidAssetStatuses = []AssetStatus{
	AssetInStorage,
	AssetInUse,
	AssetUnderRepair,
	AssetOutForRepair,
	AssetDamaged,
	AssetDecommissioned,
	AssetAwaitingReturn,
}

// IsValidAssetStatus checks if a status is valid
func IsValidAssetStatus(s AssetStatus) bool {
	for _, v := range ValidAssetStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Asset represents the core asset record in the ledger.
// Status, CurrentUser, and Location must stay jointly consistent:
// IN_STORAGE means CurrentUser is empty.
type Asset struct {
	ID            string          `json:"id"`
	Category      string          `json:"category"`
	Type          string          `json:"type"`
	Brand         *string         `json:"brand,omitempty"`
	Model         *string         `json:"model,omitempty"`
	SerialNumber  *string         `json:"serial_number,omitempty"`
	Status        AssetStatus     `json:"status"`
	Condition     string          `json:"condition"`
	CurrentUser   *string         `json:"current_user,omitempty"`
	Location      string          `json:"location"`
	PONumber      *string         `json:"po_number,omitempty"`
	WoRoIntNumber *string         `json:"wo_ro_int_number,omitempty"`
	DismantleID   *string         `json:"dismantle_id,omitempty"`
	ActivityLog   []ActivityEntry `json:"activity_log"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	UpdatedBy     string          `json:"updated_by"`
}

// InUseBy reports whether the asset is currently held by the given holder id.
func (a *Asset) InUseBy(holderID string) bool {
	return a.Status == AssetInUse && a.CurrentUser != nil && *a.CurrentUser == holderID
}

// Consistent reports whether status and holder fields agree.
func (a *Asset) Consistent() bool {
	switch a.Status {
	case AssetInStorage, AssetDecommissioned:
		return a.CurrentUser == nil
	case AssetInUse, AssetAwaitingReturn:
		return a.CurrentUser != nil
	default:
		return true
	}
}

// CreateAssetRequest represents the request body for registering a new asset
type CreateAssetRequest struct {
	Category      string  `json:"category" validate:"required"`
	Type          string  `json:"type" validate:"required"`
	Brand         *string `json:"brand,omitempty"`
	Model         *string `json:"model,omitempty"`
	SerialNumber  *string `json:"serial_number,omitempty"`
	Condition     string  `json:"condition,omitempty"`
	Location      string  `json:"location,omitempty"`
	PONumber      *string `json:"po_number,omitempty"`
	WoRoIntNumber *string `json:"wo_ro_int_number,omitempty"`
}

// UpdateAssetRequest represents the request body for editing asset master data.
// Status is deliberately absent; status only moves through workflow transitions.
type UpdateAssetRequest struct {
	Category     *string `json:"category,omitempty"`
	Type         *string `json:"type,omitempty"`
	Brand        *string `json:"brand,omitempty"`
	Model        *string `json:"model,omitempty"`
	SerialNumber *string `json:"serial_number,omitempty"`
	Condition    *string `json:"condition,omitempty"`
	Location     *string `json:"location,omitempty"`
}
