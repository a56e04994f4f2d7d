package common

// Role identifiers gating the ledger's mutating entry points. Roles are
// membership entries keyed by (role, address) in ledger state; each engine
// checks the relevant role before any state mutation.
const (
	// RoleLoanOriginator may start and roll over loans and consume nonces on
	// behalf of signers whose offers it has already validated.
	RoleLoanOriginator = "ROLE_LOAN_ORIGINATOR"
	// RoleFeeAdmin may adjust fee schedule rates.
	RoleFeeAdmin = "ROLE_FEE_ADMIN"
	// RoleAffiliateAdmin may register affiliate splits.
	RoleAffiliateAdmin = "ROLE_AFFILIATE_ADMIN"
	// RolePauseAdmin may engage and release the lifecycle switch.
	RolePauseAdmin = "ROLE_PAUSE_ADMIN"
)

// RoleView exposes role-membership checks to the native engines.
type RoleView interface {
	HasRole(role string, addr [20]byte) bool
}
