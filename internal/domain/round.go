package domain

import "time"

// RoundStatus is derived from the attempt window and never stored.
type RoundStatus string

const (
	RoundComing   RoundStatus = "coming"
	RoundCurrent  RoundStatus = "current"
	RoundFinished RoundStatus = "finished"
)

// Status places now relative to [start, finish]; both boundaries count as current.
func Status(now, start, finish time.Time) RoundStatus {
	switch {
	case now.Before(start):
		return RoundComing
	case now.After(finish):
		return RoundFinished
	default:
		return RoundCurrent
	}
}

// Status reports the round state at now.
func (r Round) Status(now time.Time) RoundStatus {
	return Status(now, r.StartTime, r.FinishTime)
}

// IsActive gates starting and submitting plays.
func (r Round) IsActive(now time.Time) bool {
	return r.Status(now) == RoundCurrent
}

// Validate checks the attempt window.
func (r Round) Validate() error {
	if !r.FinishTime.After(r.StartTime) {
		return ErrInvalidRoundWindow
	}
	return nil
}

// TimeLeft is the remaining time until a round closes.
type TimeLeft struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// RemainingTime splits finish-now into days, hours and minutes, clamped at zero.
func RemainingTime(now, finish time.Time) TimeLeft {
	left := finish.Sub(now)
	if left < 0 {
		left = 0
	}
	total := int(left / time.Minute)
	return TimeLeft{
		Days:    total / (24 * 60),
		Hours:   (total % (24 * 60)) / 60,
		Minutes: total % 60,
	}
}
