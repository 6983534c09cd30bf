package constants

import "fmt"

const (
	RoleUser    = "user"
	RoleAdmin   = "admin"
	RoleOwner   = "owner"
	RoleFinance = "finance"
)

// FeaturePayments names the staff console in role errors.
const FeaturePayments = "payments"

const ErrOnlyPaymentStaffCanAccess = "❌ Only admin, owner or finance staff can access %s."

func RoleErrorPaymentStaff(feature string) string {
	return fmt.Sprintf(ErrOnlyPaymentStaffCanAccess, feature)
}

// ==========================
// ✅ Grouped Role Slices
// ==========================
var (
	PaymentStaffRoles = []string{
		RoleAdmin,
		RoleOwner,
		RoleFinance,
	}
)
