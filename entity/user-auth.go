package entity

const (
	RoleClient  = "client"
	RoleAopr    = "aopr"
	RoleAdmin   = "admin"
	RoleService = "service"
)

// UserAuth is the authenticated caller of a request or socket.
type UserAuth struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	AgencyID string `json:"agency_id"`
	ClientID string `json:"client_id,omitempty"`
}

func (u *UserAuth) IsStaff() bool {
	return u.Role == RoleAopr || u.Role == RoleAdmin || u.Role == RoleService
}

func (u *UserAuth) IsClient() bool {
	return u.Role == RoleClient
}

// CanSeeAgency reports whether u may act within agencyID.
// Service keys are not bound to an agency.
func (u *UserAuth) CanSeeAgency(agencyID string) bool {
	if u.Role == RoleService {
		return true
	}
	return u.AgencyID != "" && u.AgencyID == agencyID
}

// CanActFor reports whether u may act on behalf of clientID within agencyID.
func (u *UserAuth) CanActFor(agencyID, clientID string) bool {
	if !u.CanSeeAgency(agencyID) {
		return false
	}
	if u.IsClient() {
		return u.ClientID != "" && u.ClientID == clientID
	}
	return true
}

// Receives reports whether an envelope for a should be delivered to u.
func (u *UserAuth) Receives(a Audience) bool {
	if !u.CanSeeAgency(a.AgencyID) {
		return false
	}
	if u.IsClient() {
		return a.ClientID != "" && a.ClientID == u.ClientID
	}
	return true
}
