package internal

import (
	"strconv"
	"strings"
)

// Field is one labelled line of a tool card
type Field struct {
	Label string
	Value string
}

// Title returns the heading shown above a tool card
func (r ToolResult) Title() string {
	switch d := r.Data.(type) {
	case WeatherInfo:
		return "Weather"
	case DealershipInfo:
		return d.Name
	case AppointmentSlots:
		return "Available Appointment Slots"
	case AppointmentConfirmation:
		return "Appointment Confirmed"
	case DealershipAddress:
		return d.Name
	case RawToolOutput:
		if d.Name == "" {
			return "Tool Output"
		}
		return "Tool Output: " + d.Name
	default:
		return "Tool Output"
	}
}

// Fields returns the card body. Empty values are left out.
func (r ToolResult) Fields() []Field {
	var fields []Field
	add := func(label, value string) {
		if value != "" {
			fields = append(fields, Field{Label: label, Value: value})
		}
	}

	switch d := r.Data.(type) {
	case WeatherInfo:
		add("Temperature", formatNumber(d.Temperature)+"°")
		add("Condition", d.Condition)
		add("Humidity", formatNumber(d.Humidity)+"%")
		add("Wind", formatNumber(d.WindSpeed)+" km/h")
	case DealershipInfo:
		add("Address", d.Address)
		add("Phone", d.Phone)
		add("Hours", d.Hours)
	case AppointmentSlots:
		add("Date", d.Date)
		add("Dealership", d.Dealership)
		add("Vehicle", d.Vehicle)
		add("Times", strings.Join(d.AvailableTimes(), ", "))
	case AppointmentConfirmation:
		add("Confirmation", d.ConfirmationID)
		add("Date", d.Date)
		add("Time", d.Time)
		add("Dealership", d.Dealership)
		add("Service", d.ServiceType)
		add("Vehicle", d.Vehicle)
		add("Notes", d.Notes)
	case DealershipAddress:
		add("Address", d.Address)
		add("Phone", d.Phone)
		add("Hours", d.Hours)
	case RawToolOutput:
		add("Output", d.Output)
	}
	return fields
}

// AvailableTimes returns the times of the bookable slots, in order
func (s AppointmentSlots) AvailableTimes() []string {
	var times []string
	for _, slot := range s.TimeSlots {
		if slot.Available {
			times = append(times, slot.Time)
		}
	}
	return times
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
