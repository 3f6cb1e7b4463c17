package internal

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Tool names the backend reports
const (
	ToolCheckAvailability   = "check_appointment_availability"
	ToolScheduleAppointment = "schedule_appointment"
	ToolDealershipAddress   = "get_dealership_address"
)

// slotDateLayout matches the day-first layout of BusinessDefaults.Date
const slotDateLayout = "02/01/2006"

// CallSite identifies which pipeline stage is interpreting a tool output.
// The stages differ only in the date given to availability results.
type CallSite int

const (
	// CallSiteStream is used by the normalizer for live tool_output events;
	// slot dates are today's date.
	CallSiteStream CallSite = iota
	// CallSiteSession is used when raw tool payloads are re-read from a
	// session log; slot dates take the default date.
	CallSiteSession
)

func (c CallSite) String() string {
	switch c {
	case CallSiteStream:
		return "stream"
	case CallSiteSession:
		return "session"
	default:
		return "unknown"
	}
}

// BusinessDefaults are the placeholder values used when tool output does not
// carry a field
type BusinessDefaults struct {
	Dealership     string `mapstructure:"dealership" yaml:"dealership"`
	ServiceType    string `mapstructure:"service_type" yaml:"service_type"`
	Vehicle        string `mapstructure:"vehicle" yaml:"vehicle"`
	ConfirmationID string `mapstructure:"confirmation_id" yaml:"confirmation_id"`
	Date           string `mapstructure:"date" yaml:"date"`
	Time           string `mapstructure:"time" yaml:"time"`
	Notes          string `mapstructure:"notes" yaml:"notes"`
	AddressLabel   string `mapstructure:"address_label" yaml:"address_label"`
	Phone          string `mapstructure:"phone" yaml:"phone"`
	Hours          string `mapstructure:"hours" yaml:"hours"`
}

// DefaultBusinessDefaults returns the stock showroom defaults
func DefaultBusinessDefaults() BusinessDefaults {
	return BusinessDefaults{
		Dealership:     "5th Avenue, New York",
		ServiceType:    "Test Drive",
		Vehicle:        "Super Car 123",
		ConfirmationID: "SuperCar-123",
		Date:           "19/03/2025",
		Time:           "10:00",
		Notes:          "Appointment scheduled successfully",
		AddressLabel:   "Dealership Location",
		Phone:          "(555) 123-4567",
		Hours:          "Mon-Sat: 9:00 AM - 6:00 PM",
	}
}

// Interpreter maps raw (toolName, output) pairs to ToolResults. It never
// fails: every parse error degrades to a default or unknown result.
type Interpreter struct {
	defaults BusinessDefaults
	now      func() time.Time
}

// NewInterpreter creates an interpreter using the given defaults
func NewInterpreter(defaults BusinessDefaults) *Interpreter {
	return &Interpreter{defaults: defaults, now: time.Now}
}

// SetClock replaces the clock used for stream-side slot dates
func (i *Interpreter) SetClock(now func() time.Time) {
	i.now = now
}

// Defaults returns the business defaults in use
func (i *Interpreter) Defaults() BusinessDefaults {
	return i.defaults
}

// Interpret converts a tool output into a display-ready result
func (i *Interpreter) Interpret(site CallSite, name, output string) ToolResult {
	switch name {
	case ToolCheckAvailability:
		return NewToolResult(i.appointmentSlots(site, output))
	case ToolScheduleAppointment:
		return NewToolResult(i.appointmentConfirmation(output))
	case ToolDealershipAddress:
		return NewToolResult(i.dealershipAddress(output))
	default:
		LogDebug("Unknown tool %q, keeping raw output", name)
		return NewToolResult(RawToolOutput{Name: name, Output: output})
	}
}

func (i *Interpreter) appointmentSlots(site CallSite, output string) AppointmentSlots {
	cleaned := trimEdgeQuotes(output)
	cleaned = stripCodeFences(cleaned)
	cleaned = strings.ReplaceAll(cleaned, "'", `"`)
	cleaned = strings.TrimSpace(cleaned)

	times, err := parseTimeList(cleaned)
	if err != nil {
		LogDebug("%v", &ParseError{Source: ToolCheckAvailability, Key: excerpt(cleaned), Err: err})
		times = extractBracketList(cleaned)
	}

	slots := make([]TimeSlot, 0, len(times))
	for _, t := range times {
		slots = append(slots, TimeSlot{
			Time:      stripQuoteChars(strings.TrimSpace(t)),
			Available: true,
		})
	}

	date := i.defaults.Date
	if site == CallSiteStream {
		date = i.now().Format(slotDateLayout)
	}

	return AppointmentSlots{
		TimeSlots:  slots,
		Date:       date,
		Dealership: i.defaults.Dealership,
		Vehicle:    i.defaults.Vehicle,
	}
}

// parseTimeList parses a strict JSON array of strings
func parseTimeList(s string) ([]string, error) {
	var times []string
	if err := json.Unmarshal([]byte(s), &times); err != nil {
		return nil, err
	}
	if times == nil {
		return []string{}, nil
	}
	return times, nil
}

func (i *Interpreter) appointmentConfirmation(output string) AppointmentConfirmation {
	d := i.defaults
	fallback := AppointmentConfirmation{
		ConfirmationID: d.ConfirmationID,
		Date:           d.Date,
		Time:           d.Time,
		Dealership:     d.Dealership,
		ServiceType:    d.ServiceType,
		Vehicle:        d.Vehicle,
		Notes:          d.Notes,
	}

	cleaned := unwrapQuoted(output)
	cleaned = strings.TrimSpace(stripCodeFences(cleaned))

	var fields map[string]any
	if err := json.Unmarshal([]byte(ConvertDictLiteral(cleaned)), &fields); err != nil {
		LogDebug("%v", &ParseError{Source: ToolScheduleAppointment, Key: excerpt(cleaned), Err: err})
		return fallback
	}
	if fields == nil {
		return fallback
	}

	return AppointmentConfirmation{
		ConfirmationID: pickField(fields, d.ConfirmationID, "confirmacion_id", "confirmation_id"),
		Date:           pickField(fields, d.Date, "fecha", "date"),
		Time:           pickField(fields, d.Time, "hora", "time"),
		Dealership:     d.Dealership,
		ServiceType:    d.ServiceType,
		Vehicle:        pickField(fields, d.Vehicle, "modelo", "vehicle"),
		Notes:          pickField(fields, d.Notes, "mensaje", "message"),
	}
}

// dealershipAddress fills phone and hours from the defaults at every call
// site, so a card looks the same live and after a reload
func (i *Interpreter) dealershipAddress(output string) DealershipAddress {
	return DealershipAddress{
		Name:    i.defaults.AddressLabel,
		Address: output,
		Phone:   i.defaults.Phone,
		Hours:   i.defaults.Hours,
	}
}

// pickField returns the first key holding a non-empty value, else def.
// Zero numbers, false and null count as empty.
func pickField(fields map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		if s, ok := fieldString(fields[k]); ok {
			return s
		}
	}
	return def
}

func fieldString(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), val != 0
	case bool:
		return "true", val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
