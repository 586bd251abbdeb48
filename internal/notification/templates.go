package notification

import (
	"fmt"

	"immersion/internal/convention/models"
	pstrings "immersion/pkg/platform/strings"
)

// Email kinds, used for logging and metrics labels.
const (
	KindSignatureRequest    = "signature-request"
	KindModificationRequest = "modification-request"
	KindSignatureProgress   = "signature-progress"
	KindReadyForReview      = "ready-for-review"
	KindConventionValidated = "convention-validated"
	KindConventionRejected  = "convention-rejected"
	KindConventionCancelled = "convention-cancelled"
	KindAssessmentCreated   = "assessment-created"
	KindAssessmentDeleted   = "assessment-deleted"
)

func signatoryEmails(c *models.Convention) []string {
	var out []string
	for _, sig := range c.Signatories.All() {
		out = append(out, sig.Email)
	}
	return pstrings.DedupeAndTrim(out)
}

func unsignedEmails(c *models.Convention) []string {
	var out []string
	for _, sig := range c.Signatories.All() {
		if !sig.Signed() {
			out = append(out, sig.Email)
		}
	}
	return pstrings.DedupeAndTrim(out)
}

func signatureRequestEmail(c *models.Convention) Email {
	return Email{
		Recipients: signatoryEmails(c),
		Subject:    fmt.Sprintf("Immersion convention at %s: your signature is required", c.EstablishmentName),
		Body: fmt.Sprintf(
			"The immersion convention at %s (from %s to %s) is ready to sign. Each party must sign before the agency can review it.",
			c.EstablishmentName, c.DateStart.Format("2006-01-02"), c.DateEnd.Format("2006-01-02")),
		Kind: KindSignatureRequest,
	}
}

func modificationRequestEmail(c *models.Convention, justification string) Email {
	return Email{
		Recipients: signatoryEmails(c),
		Subject:    fmt.Sprintf("Immersion convention at %s: modifications requested", c.EstablishmentName),
		Body: fmt.Sprintf(
			"The convention was sent back to draft and all signatures were cleared. Reason: %s",
			justification),
		Kind: KindModificationRequest,
	}
}

func signatureProgressEmail(c *models.Convention) Email {
	return Email{
		Recipients: unsignedEmails(c),
		Subject:    fmt.Sprintf("Immersion convention at %s: signature still expected", c.EstablishmentName),
		Body:       "Another party signed the convention. It now waits for your signature.",
		Kind:       KindSignatureProgress,
	}
}

func readyForReviewEmail(c *models.Convention, agencyEmails []string) Email {
	return Email{
		Recipients: agencyEmails,
		Subject:    fmt.Sprintf("Convention %s is fully signed", c.ID),
		Body: fmt.Sprintf(
			"Every party signed the immersion convention at %s. It is ready for review.",
			c.EstablishmentName),
		Kind: KindReadyForReview,
	}
}

func validatedEmail(c *models.Convention) Email {
	return Email{
		Recipients: pstrings.DedupeAndTrim(append(signatoryEmails(c), c.EstablishmentTutorEmail)),
		Subject:    fmt.Sprintf("Immersion convention at %s: validated", c.EstablishmentName),
		Body: fmt.Sprintf(
			"The immersion convention is validated. The immersion may take place from %s to %s.",
			c.DateStart.Format("2006-01-02"), c.DateEnd.Format("2006-01-02")),
		Kind: KindConventionValidated,
	}
}

func rejectedEmail(c *models.Convention, justification string) Email {
	return Email{
		Recipients: signatoryEmails(c),
		Subject:    fmt.Sprintf("Immersion convention at %s: rejected", c.EstablishmentName),
		Body:       fmt.Sprintf("The convention was rejected by the agency. Reason: %s", justification),
		Kind:       KindConventionRejected,
	}
}

func cancelledEmail(c *models.Convention, justification string) Email {
	return Email{
		Recipients: signatoryEmails(c),
		Subject:    fmt.Sprintf("Immersion convention at %s: cancelled", c.EstablishmentName),
		Body:       fmt.Sprintf("The validated convention was cancelled. Reason: %s", justification),
		Kind:       KindConventionCancelled,
	}
}

func assessmentCreatedEmail(c *models.Convention, agencyEmails []string) Email {
	return Email{
		Recipients: agencyEmails,
		Subject:    fmt.Sprintf("Assessment filed for convention %s", c.ID),
		Body: fmt.Sprintf(
			"The completion report for the immersion at %s has been filed.",
			c.EstablishmentName),
		Kind: KindAssessmentCreated,
	}
}

func firstSignatureSMS(c *models.Convention) *SMS {
	phone := c.Signatories.Beneficiary.Phone
	if phone == "" {
		return nil
	}
	return &SMS{
		PhoneNumber: phone,
		Body:        fmt.Sprintf("Your immersion convention at %s is ready to sign.", c.EstablishmentName),
	}
}
