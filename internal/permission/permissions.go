// Package permission holds the static capability graph and the resolver that
// keeps role permission sets closed under its dependency rules.
package permission

// Permission keys. Flat strings, namespaced by module.
const (
	AssetsView         = "assets:view"
	AssetsCreate       = "assets:create"
	AssetsEdit         = "assets:edit"
	AssetsDelete       = "assets:delete"
	AssetsHandover     = "assets:handover"
	AssetsDismantle    = "assets:dismantle"
	AssetsInstall      = "assets:install"
	AssetsRepairReport = "assets:repair:report"
	AssetsRepairManage = "assets:repair:manage"

	RequestsView            = "requests:view"
	RequestsCreate          = "requests:create"
	RequestsCancel          = "requests:cancel"
	RequestsComment         = "requests:comment"
	RequestsApproveLogistic = "requests:approve:logistic"
	RequestsApprovePurchase = "requests:approve:purchase"
	RequestsApproveFinal    = "requests:approve:final"

	LoansView    = "loan-requests:view"
	LoansCreate  = "loan-requests:create"
	LoansApprove = "loan-requests:approve"
	LoansReturn  = "loan-requests:return"

	UsersView   = "users:view"
	UsersManage = "users:manage"
)

// All lists every known permission key.
var All = []string{
	AssetsView, AssetsCreate, AssetsEdit, AssetsDelete,
	AssetsHandover, AssetsDismantle, AssetsInstall,
	AssetsRepairReport, AssetsRepairManage,
	RequestsView, RequestsCreate, RequestsCancel, RequestsComment,
	RequestsApproveLogistic, RequestsApprovePurchase, RequestsApproveFinal,
	LoansView, LoansCreate, LoansApprove, LoansReturn,
	UsersView, UsersManage,
}

// Dependencies maps a permission to the permissions it requires. Granting a
// key grants its ancestors; revoking a key revokes its dependents. The graph
// must be acyclic; NewResolver rejects cycles at startup.
var Dependencies = map[string][]string{
	AssetsCreate:       {AssetsView},
	AssetsEdit:         {AssetsView},
	AssetsDelete:       {AssetsView},
	AssetsHandover:     {AssetsView},
	AssetsDismantle:    {AssetsView},
	AssetsInstall:      {AssetsView},
	AssetsRepairReport: {AssetsView},
	AssetsRepairManage: {AssetsView, AssetsRepairReport},

	RequestsCreate:          {RequestsView},
	RequestsCancel:          {RequestsView},
	RequestsComment:         {RequestsView},
	RequestsApproveLogistic: {RequestsView},
	RequestsApprovePurchase: {RequestsView, RequestsApproveLogistic},
	RequestsApproveFinal:    {RequestsView},

	LoansCreate:  {LoansView},
	LoansApprove: {LoansView, AssetsView},
	LoansReturn:  {LoansView},

	UsersManage: {UsersView},
}

// Role names.
const (
	RoleAdmin    = "admin"
	RoleLogistic = "logistic"
	RolePurchase = "purchase"
	RoleCEO      = "ceo"
	RoleStaff    = "staff"
)

// ValidRoles defines the available roles in the system
var ValidRoles = []string{RoleAdmin, RoleLogistic, RolePurchase, RoleCEO, RoleStaff}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Mandatory maps a role to permissions the resolver may never revoke from it.
var Mandatory = map[string][]string{
	RoleAdmin:    {UsersView, UsersManage, AssetsView, RequestsView, LoansView},
	RoleLogistic: {AssetsView, RequestsView, RequestsApproveLogistic, LoansView},
	RolePurchase: {RequestsView, RequestsApprovePurchase},
	RoleCEO:      {RequestsView, RequestsApproveFinal},
	RoleStaff:    {RequestsView, RequestsCreate, LoansView, LoansCreate},
}

// Defaults maps a role to its initial grant; closure is applied on top.
var Defaults = map[string][]string{
	RoleAdmin:    All,
	RoleLogistic: {AssetsView, AssetsCreate, AssetsEdit, AssetsHandover, AssetsDismantle, AssetsInstall, AssetsRepairReport, AssetsRepairManage, RequestsView, RequestsComment, RequestsApproveLogistic, LoansView, LoansApprove, LoansReturn},
	RolePurchase: {RequestsView, RequestsComment, RequestsApproveLogistic, RequestsApprovePurchase, AssetsView},
	RoleCEO:      {RequestsView, RequestsComment, RequestsApproveFinal, AssetsView, LoansView},
	RoleStaff:    {RequestsView, RequestsCreate, RequestsComment, LoansView, LoansCreate},
}
