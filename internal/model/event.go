// Copyright (C) 2024 the quixsi maintainers
// See root-dir/LICENSE for more information

package model

import "time"

// DefaultStartedMessage is shown once the event date is reached and the event
// does not set its own text.
const DefaultStartedMessage = "The event has begun!"

type Event struct {
	Title    string    `yaml:"title"`
	Host     string    `yaml:"host"`
	Greeting string    `yaml:"greeting"`
	Subtitle string    `yaml:"subtitle"`
	Footer   string    `yaml:"footer"`
	Date     time.Time `yaml:"date"`
	// Deadline closes the form for new responses, zero means never.
	Deadline time.Time `yaml:"deadline"`

	// StartedMessage replaces the countdown once Date is reached.
	StartedMessage string `yaml:"started_message"`
}

// DeadlinePassed reports whether new responses are no longer accepted.
func (e *Event) DeadlinePassed(now time.Time) bool {
	return !e.Deadline.IsZero() && !now.Before(e.Deadline)
}

type Countdown struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	Started bool
	Message string
}

// CountdownAt is the countdown to the event date. Once it started, Message
// holds the event's started text.
func (e *Event) CountdownAt(now time.Time) Countdown {
	cd := CountdownTo(now, e.Date)
	if cd.Started {
		cd.Message = e.StartedMessage
		if cd.Message == "" {
			cd.Message = DefaultStartedMessage
		}
	}
	return cd
}

// CountdownTo splits the time left until target into whole days, hours,
// minutes and seconds. Once target is reached Started is set and all parts
// are zero.
func CountdownTo(now, target time.Time) Countdown {
	left := target.Sub(now)
	if left <= 0 {
		return Countdown{Started: true}
	}
	secs := int(left / time.Second)
	return Countdown{
		Days:    secs / 86400,
		Hours:   secs % 86400 / 3600,
		Minutes: secs % 3600 / 60,
		Seconds: secs % 60,
	}
}
