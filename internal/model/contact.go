package model

import (
	"time"
)

const (
	RelationshipClient          = "client"
	RelationshipProspect        = "prospect"
	RelationshipReferralPartner = "referral_partner"
	RelationshipPeer            = "peer"
)

type Contact struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"-"`
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email"`
	Company         string     `db:"company" json:"company"`
	Role            string     `db:"role" json:"role"`
	Relationship    string     `db:"relationship" json:"relationship"`
	ReferredByID    *string    `db:"referred_by_id" json:"referred_by_id,omitempty"`
	Notes           string     `db:"notes" json:"notes"`
	LastContactedAt *time.Time `db:"last_contacted_at" json:"last_contacted_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// ReferralStats summarizes what a contact has brought in, directly or
// through the contacts they referred.
type ReferralStats struct {
	ContactID        string  `db:"contact_id" json:"contact_id"`
	Name             string  `db:"name" json:"name"`
	Referrals        int     `db:"referrals" json:"referrals"`
	Opportunities    int     `db:"opportunities" json:"opportunities"`
	WonOpportunities int     `db:"won_opportunities" json:"won_opportunities"`
	WonValue         float64 `db:"won_value" json:"won_value"`
}

func IsValidRelationship(r string) bool {
	switch r {
	case RelationshipClient, RelationshipProspect, RelationshipReferralPartner, RelationshipPeer:
		return true
	}
	return false
}
