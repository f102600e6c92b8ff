package scheduling

import (
	"time"

	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

// DefaultServiceWindow is how long an assignment keeps a technician busy.
const DefaultServiceWindow = 8 * time.Hour

// ===============================
// Domain Actions
// ===============================

// MarkBusy moves av into the Busy state for [now, now+window]. A nil av is
// created for the technician.
func MarkBusy(av *models.Availability, technicianID uint, now time.Time, window time.Duration) *models.Availability {
	if av == nil {
		av = &models.Availability{UserID: technicianID}
	}
	av.IsAvailable = false
	av.Date = startOfDay(now)
	av.StartTime = now
	av.EndTime = now.Add(window)
	return av
}

// MarkAvailable moves av into the Available state starting at now.
func MarkAvailable(av *models.Availability, technicianID uint, now time.Time, window time.Duration) *models.Availability {
	if av == nil {
		av = &models.Availability{UserID: technicianID}
	}
	av.IsAvailable = true
	av.Date = startOfDay(now)
	av.StartTime = now
	av.EndTime = now.Add(window)
	return av
}

// ApplyOverride copies a manual availability edit onto av.
func ApplyOverride(av *models.Availability, technicianID uint, in AvailabilityOverride) (*models.Availability, error) {
	if in.StartTime != nil && in.EndTime != nil && in.EndTime.Before(*in.StartTime) {
		return nil, httperr.ErrBusiness("invalid_time_window")
	}
	if av == nil {
		av = &models.Availability{UserID: technicianID}
	}
	if in.IsAvailable != nil {
		av.IsAvailable = *in.IsAvailable
	}
	if in.Date != nil {
		av.Date = *in.Date
	}
	if in.StartTime != nil {
		av.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		av.EndTime = *in.EndTime
	}
	if av.EndTime.Before(av.StartTime) {
		return nil, httperr.ErrBusiness("invalid_time_window")
	}
	return av, nil
}

type AvailabilityOverride struct {
	IsAvailable *bool
	Date        *time.Time
	StartTime   *time.Time
	EndTime     *time.Time
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
