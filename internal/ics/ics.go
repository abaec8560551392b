// Package ics moves calendar events in and out of iCalendar (RFC 5545)
// documents.
package ics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/dukerupert/timegrid/internal/model"
)

const productID = "-//timegrid//calendar//EN"

// DefaultDuration is used for imported events that carry no DTEND.
const DefaultDuration = time.Hour

var ErrEmptyCalendar = errors.New("empty calendar body")

// EventAdder is the part of the calendar store an import writes to.
type EventAdder interface {
	AddEvent(in model.EventInput) (string, error)
}

// ImportResult reports what an import did. Skipped counts VEVENTs that
// could not be turned into an event.
type ImportResult struct {
	Imported []string `json:"imported"`
	Skipped  int      `json:"skipped"`
}

// Export renders events as a PUBLISH calendar. Colours from the palette
// are written by name, anything else verbatim.
func Export(events []model.CalendarEvent, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, e := range events {
		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(e.Start)
		ve.SetEndAt(e.End)
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		if e.Color != "" {
			ve.SetProperty(ical.ComponentPropertyColor, colorName(e.Color))
		}
	}
	return cal.Serialize()
}

func colorName(value string) string {
	if c, ok := model.ColorByValue(value); ok {
		return c.ID
	}
	return value
}

func colorValue(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "#") {
		return name
	}
	return model.ColorByID(strings.ToLower(name)).Value
}

// Import parses r and adds every usable VEVENT through adder. Events keep
// their instant; the store assigns fresh ids. A VEVENT without a start,
// or whose end precedes its start, is skipped and logged.
func Import(r io.Reader, adder EventAdder, defaultColor string) (ImportResult, error) {
	var res ImportResult

	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return res, fmt.Errorf("parse calendar: %w", err)
	}
	events := cal.Events()
	if len(events) == 0 {
		return res, ErrEmptyCalendar
	}

	for _, ve := range events {
		in, err := toInput(ve, defaultColor)
		if err != nil {
			slog.Warn("ics event skipped", "uid", ve.Id(), "error", err)
			res.Skipped++
			continue
		}
		id, err := adder.AddEvent(in)
		if err != nil {
			return res, fmt.Errorf("add event: %w", err)
		}
		res.Imported = append(res.Imported, id)
	}

	slog.Info("ics import completed", "imported", len(res.Imported), "skipped", res.Skipped)
	return res, nil
}

func toInput(ve *ical.VEvent, defaultColor string) (model.EventInput, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return model.EventInput{}, fmt.Errorf("start: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		end = start.Add(DefaultDuration)
	}
	if end.Before(start) {
		return model.EventInput{}, fmt.Errorf("end %s before start %s", end, start)
	}

	in := model.EventInput{
		Start: start.Format(time.RFC3339),
		End:   end.Format(time.RFC3339),
		Color: defaultColor,
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		in.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		in.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyColor); p != nil {
		if c := colorValue(p.Value); c != "" {
			in.Color = c
		}
	}
	return in, nil
}
