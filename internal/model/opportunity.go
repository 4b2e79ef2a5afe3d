package model

import (
	"time"
)

const (
	OpportunityTypeWorkshop = "workshop"
	OpportunityTypeAdvisory = "advisory"
	OpportunityTypeLecture  = "lecture"
	OpportunityTypePR       = "pr"
)

const (
	StageLead        = "lead"
	StageQualified   = "qualified"
	StageProposal    = "proposal"
	StageNegotiation = "negotiation"
	StageWon         = "won"
	StageLost        = "lost"
)

// OpportunityTypes lists the supported opportunity types in display order.
var OpportunityTypes = []string{
	OpportunityTypeWorkshop,
	OpportunityTypeAdvisory,
	OpportunityTypeLecture,
	OpportunityTypePR,
}

type Opportunity struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"-"`
	ContactID      *string   `db:"contact_id" json:"contact_id,omitempty"`
	Title          string    `db:"title" json:"title"`
	Type           string    `db:"type" json:"type"`
	Stage          string    `db:"stage" json:"stage"`
	Probability    float64   `db:"probability" json:"probability"` // 0-100
	EstimatedValue float64   `db:"estimated_value" json:"estimated_value"`
	Month          string    `db:"month" json:"month"`
	Notes          string    `db:"notes" json:"notes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// InPipeline reports whether the opportunity is still open.
func (o *Opportunity) InPipeline() bool {
	return IsPipelineStage(o.Stage)
}

func (o *Opportunity) IsWon() bool {
	return o.Stage == StageWon
}

func (o *Opportunity) IsLost() bool {
	return o.Stage == StageLost
}

// IsPipelineStage reports whether stage is a non-terminal stage.
func IsPipelineStage(stage string) bool {
	switch stage {
	case StageLead, StageQualified, StageProposal, StageNegotiation:
		return true
	}
	return false
}

func IsValidStage(stage string) bool {
	return IsPipelineStage(stage) || stage == StageWon || stage == StageLost
}

func IsValidOpportunityType(t string) bool {
	for _, known := range OpportunityTypes {
		if known == t {
			return true
		}
	}
	return false
}
