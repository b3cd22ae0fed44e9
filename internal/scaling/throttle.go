package scaling

import (
	"fmt"
	"math"
	"time"

	"github.com/ochestra-tech/tablescaler/internal/config"
)

// ThrottleReason identifies which decrease policy suppressed a scale down
type ThrottleReason string

const (
	ThrottleExhausted ThrottleReason = "exhausted"
	ThrottleTooMany   ThrottleReason = "too_many_today"
	ThrottleWaiting   ThrottleReason = "waiting"
)

// ThrottleError is a non-fatal advisory attached to a suppressed Down decision
type ThrottleError struct {
	Reason  ThrottleReason
	Message string
}

func (e *ThrottleError) Error() string {
	return e.Message
}

// CheckDecrease applies the decrease policies in order and returns a
// *ThrottleError for the first one that trips, or nil when a decrease may
// proceed at now.
func CheckDecrease(cfg config.Config, state ProvisionedState, now time.Time) error {
	now = now.UTC()
	decreases := state.NumberOfDecreasesToday

	if decreases >= int64(cfg.MaxDecreasesPerDay) {
		midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
		return &ThrottleError{
			Reason:  ThrottleExhausted,
			Message: fmt.Sprintf("Maximum decreases already used. %d minutes until reset.", roundMinutes(midnight.Sub(now))),
		}
	}

	// Spread decreases over the day so they are not all spent early.
	nextSlot := float64(decreases) * (24 / float64(cfg.MaxDecreasesPerDay))
	if nextSlot > float64(now.Hour()) {
		return &ThrottleError{
			Reason:  ThrottleTooMany,
			Message: fmt.Sprintf("Too many decreases (%d) already used today. Next available at %s UTC.", decreases, formatHour(nextSlot)),
		}
	}

	if !state.LastDecreaseDateTime.IsZero() {
		nextWindow := state.LastDecreaseDateTime.Add(cfg.MinWaitBetweenScaleDowns())
		if now.Before(nextWindow) {
			return &ThrottleError{
				Reason:  ThrottleWaiting,
				Message: fmt.Sprintf("Waiting %d minutes for next scale down window", roundMinutes(nextWindow.Sub(now))),
			}
		}
	}

	return nil
}

func roundMinutes(d time.Duration) int64 {
	return int64(math.Round(d.Minutes()))
}

// formatHour renders a fractional hour of day as HH:MM.
func formatHour(hour float64) string {
	minutes := int(math.Round(hour * 60))
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
