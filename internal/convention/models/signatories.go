package models

import (
	"time"

	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
)

// Signatory is one party that must sign the convention before review.
// SignedAt presence means signed; once set it is immutable except through a
// full reset to DRAFT, which clears every signature at once.
type Signatory struct {
	Role      id.Role    `json:"role"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	SignedAt  *time.Time `json:"signed_at,omitempty"`
}

// Signed reports whether this signatory has signed.
func (s *Signatory) Signed() bool { return s != nil && s.SignedAt != nil }

// Signatories holds the parties of one convention. Beneficiary and
// establishment representative are always required; the representative and
// the current employer exist only on some conventions but must sign whenever
// they exist.
type Signatories struct {
	Beneficiary                 Signatory  `json:"beneficiary"`
	BeneficiaryRepresentative   *Signatory `json:"beneficiary_representative,omitempty"`
	BeneficiaryCurrentEmployer  *Signatory `json:"beneficiary_current_employer,omitempty"`
	EstablishmentRepresentative Signatory  `json:"establishment_representative"`
}

// All returns every signatory present on the convention.
func (s *Signatories) All() []*Signatory {
	all := []*Signatory{&s.Beneficiary}
	if s.BeneficiaryRepresentative != nil {
		all = append(all, s.BeneficiaryRepresentative)
	}
	if s.BeneficiaryCurrentEmployer != nil {
		all = append(all, s.BeneficiaryCurrentEmployer)
	}
	all = append(all, &s.EstablishmentRepresentative)
	return all
}

// ByRole resolves the signatory holding the given role, or nil when the
// convention has no such party.
func (s *Signatories) ByRole(role id.Role) *Signatory {
	switch role {
	case id.RoleBeneficiary:
		return &s.Beneficiary
	case id.RoleEstablishmentRepresentative:
		return &s.EstablishmentRepresentative
	case id.RoleBeneficiaryRepresentative:
		return s.BeneficiaryRepresentative
	case id.RoleBeneficiaryCurrentEmployer:
		return s.BeneficiaryCurrentEmployer
	}
	return nil
}

// IsFullySigned reports whether every required signatory, given which
// optional signatories exist, has a signature timestamp.
func (s *Signatories) IsFullySigned() bool {
	for _, sig := range s.All() {
		if !sig.Signed() {
			return false
		}
	}
	return true
}

// SignedCount returns how many present signatories have signed.
func (s *Signatories) SignedCount() int {
	n := 0
	for _, sig := range s.All() {
		if sig.Signed() {
			n++
		}
	}
	return n
}

// markSigned stamps the signature for the given role. Signing is monotonic:
// a second attempt for the same role conflicts instead of moving the
// timestamp.
func (s *Signatories) markSigned(role id.Role, at time.Time) error {
	sig := s.ByRole(role)
	if sig == nil {
		return dErrors.Newf(dErrors.CodeForbidden, "convention has no %s signatory", role)
	}
	if sig.Signed() {
		return dErrors.Newf(dErrors.CodeConflict, "%s has already signed", role)
	}
	t := at
	sig.SignedAt = &t
	return nil
}

// clearSignatures removes every signature timestamp. Only a full status reset
// to DRAFT may call this.
func (s *Signatories) clearSignatures() {
	for _, sig := range s.All() {
		sig.SignedAt = nil
	}
}

// Validate checks that the required parties carry contact details.
func (s *Signatories) Validate() error {
	for _, sig := range s.All() {
		if sig.Email == "" {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%s signatory requires an email", sig.Role)
		}
	}
	return nil
}

// Clone returns a deep copy so stores can hand out aliasing-safe values.
func (s Signatories) Clone() Signatories {
	out := s
	if s.BeneficiaryRepresentative != nil {
		cp := *s.BeneficiaryRepresentative
		out.BeneficiaryRepresentative = &cp
	}
	if s.BeneficiaryCurrentEmployer != nil {
		cp := *s.BeneficiaryCurrentEmployer
		out.BeneficiaryCurrentEmployer = &cp
	}
	if s.Beneficiary.SignedAt != nil {
		t := *s.Beneficiary.SignedAt
		out.Beneficiary.SignedAt = &t
	}
	if s.EstablishmentRepresentative.SignedAt != nil {
		t := *s.EstablishmentRepresentative.SignedAt
		out.EstablishmentRepresentative.SignedAt = &t
	}
	if out.BeneficiaryRepresentative != nil && out.BeneficiaryRepresentative.SignedAt != nil {
		t := *out.BeneficiaryRepresentative.SignedAt
		out.BeneficiaryRepresentative.SignedAt = &t
	}
	if out.BeneficiaryCurrentEmployer != nil && out.BeneficiaryCurrentEmployer.SignedAt != nil {
		t := *out.BeneficiaryCurrentEmployer.SignedAt
		out.BeneficiaryCurrentEmployer.SignedAt = &t
	}
	return out
}
