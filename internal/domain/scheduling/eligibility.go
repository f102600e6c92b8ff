package scheduling

import "github.com/BruksfildServices01/erms-api/internal/models"

// ===============================
// Eligibility
// ===============================

type Eligibility string

const (
	EligibilityAvailable Eligibility = "available"
	EligibilityBusy      Eligibility = "busy"
	// EligibilityUnknown means the technician has no availability record.
	EligibilityUnknown Eligibility = "unknown"
)

// NoRecordPolicy decides how EligibilityUnknown is treated by the index.
type NoRecordPolicy string

const (
	NoRecordExclude   NoRecordPolicy = "exclude"
	NoRecordAvailable NoRecordPolicy = "available"
)

func ParseNoRecordPolicy(s string) NoRecordPolicy {
	if NoRecordPolicy(s) == NoRecordAvailable {
		return NoRecordAvailable
	}
	return NoRecordExclude
}

func EligibilityOf(av *models.Availability) Eligibility {
	switch {
	case av == nil:
		return EligibilityUnknown
	case av.IsAvailable:
		return EligibilityAvailable
	default:
		return EligibilityBusy
	}
}

// Assignable reports whether the index should list a technician with
// eligibility e under policy p.
func (e Eligibility) Assignable(p NoRecordPolicy) bool {
	switch e {
	case EligibilityAvailable:
		return true
	case EligibilityUnknown:
		return p == NoRecordAvailable
	default:
		return false
	}
}
