package domain

import dErrors "immersion/pkg/domain-errors"

// Role identifies how an actor relates to a convention. The four signatory
// roles are parties to the agreement; counsellor and validator are the two
// agency-side approval roles; back-office admin is the platform operator.
type Role string

const (
	RoleBeneficiary                 Role = "beneficiary"
	RoleBeneficiaryRepresentative   Role = "beneficiary-representative"
	RoleBeneficiaryCurrentEmployer  Role = "beneficiary-current-employer"
	RoleEstablishmentRepresentative Role = "establishment-representative"
	RoleCounsellor                  Role = "counsellor"
	RoleValidator                   Role = "validator"
	RoleBackOfficeAdmin             Role = "back-office-admin"
)

// AllRoles is the single source of truth for valid roles.
var AllRoles = []Role{
	RoleBeneficiary,
	RoleBeneficiaryRepresentative,
	RoleBeneficiaryCurrentEmployer,
	RoleEstablishmentRepresentative,
	RoleCounsellor,
	RoleValidator,
	RoleBackOfficeAdmin,
}

var validRoles = func() map[Role]bool {
	m := make(map[Role]bool, len(AllRoles))
	for _, r := range AllRoles {
		m[r] = true
	}
	return m
}()

// ParseRole constructs a Role from external input.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if !validRoles[r] {
		return "", dErrors.Newf(dErrors.CodeBadRequest, "unknown role %q", raw)
	}
	return r, nil
}

// IsSignatory reports whether the role is a party that signs the convention.
func (r Role) IsSignatory() bool {
	switch r {
	case RoleBeneficiary, RoleBeneficiaryRepresentative,
		RoleBeneficiaryCurrentEmployer, RoleEstablishmentRepresentative:
		return true
	case RoleCounsellor, RoleValidator, RoleBackOfficeAdmin:
		return false
	}
	return false
}

func (r Role) String() string { return string(r) }
