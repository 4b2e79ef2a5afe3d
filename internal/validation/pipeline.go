package validation

import (
	"strings"

	"github.com/templui/fractional/internal/model"
)

func ValidateOpportunity(opp *model.Opportunity) error {
	title := strings.TrimSpace(opp.Title)
	if title == "" {
		return Invalid("title", "is required")
	}
	if len(title) > 200 {
		return Invalid("title", "is too long (max 200 characters)")
	}
	if !model.IsValidOpportunityType(opp.Type) {
		return Invalid("type", "must be one of workshop, advisory, lecture, pr")
	}
	if !model.IsValidStage(opp.Stage) {
		return Invalid("stage", "must be one of lead, qualified, proposal, negotiation, won, lost")
	}
	if err := ValidateProbability(opp.Probability); err != nil {
		return err
	}
	if err := nonNegative("estimated_value", opp.EstimatedValue); err != nil {
		return err
	}
	if err := ValidateMonth(opp.Month); err != nil {
		return err
	}
	if len(opp.Notes) > maxNotesLength {
		return Invalid("notes", "is too long (max 2000 characters)")
	}
	return nil
}

func ValidateProbability(p float64) error {
	if err := nonNegative("probability", p); err != nil {
		return err
	}
	if p > 100 {
		return Invalid("probability", "must be between 0 and 100")
	}
	return nil
}

func ValidateContact(contact *model.Contact) error {
	if err := ValidateName(contact.Name); err != nil {
		return err
	}
	if contact.Email != "" {
		if err := ValidateEmail(contact.Email); err != nil {
			return err
		}
	}
	if !model.IsValidRelationship(contact.Relationship) {
		return Invalid("relationship", "must be one of client, prospect, referral_partner, peer")
	}
	if contact.ReferredByID != nil && *contact.ReferredByID == contact.ID && contact.ID != "" {
		return Invalid("referred_by_id", "a contact cannot refer themselves")
	}
	return nil
}
