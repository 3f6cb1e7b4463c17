package internal

import (
	"encoding/json"
	"fmt"
)

// ToolKind is the tag of a ToolResult
type ToolKind string

const (
	KindWeather                 ToolKind = "weather"
	KindDealership              ToolKind = "dealership"
	KindAppointmentSlots        ToolKind = "appointment_slots"
	KindAppointmentConfirmation ToolKind = "appointment_confirmation"
	KindDealershipAddress       ToolKind = "dealership_address"
	KindUnknown                 ToolKind = "unknown"

	// legacyKindDealershipAddress is the tag older clients persisted for KindDealershipAddress
	legacyKindDealershipAddress ToolKind = "get_dealership_address"
)

// ToolData is implemented by every ToolResult variant payload
type ToolData interface {
	Kind() ToolKind
}

// WeatherInfo is the payload of a weather result
type WeatherInfo struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	Condition   string  `json:"condition" yaml:"condition"`
	Humidity    float64 `json:"humidity" yaml:"humidity"`
	WindSpeed   float64 `json:"windSpeed" yaml:"wind_speed"`
}

// DealershipInfo is the payload of a dealership result
type DealershipInfo struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Phone   string `json:"phone" yaml:"phone"`
	Hours   string `json:"hours" yaml:"hours"`
}

// TimeSlot is a single bookable time
type TimeSlot struct {
	Time      string `json:"time" yaml:"time"`
	Available bool   `json:"available" yaml:"available"`
}

// AppointmentSlots is the payload of an appointment_slots result
type AppointmentSlots struct {
	TimeSlots  []TimeSlot `json:"timeSlots" yaml:"time_slots"`
	Date       string     `json:"date" yaml:"date"`
	Dealership string     `json:"dealership" yaml:"dealership"`
	Vehicle    string     `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
}

// AppointmentConfirmation is the payload of an appointment_confirmation result
type AppointmentConfirmation struct {
	Date           string `json:"date" yaml:"date"`
	Time           string `json:"time" yaml:"time"`
	Dealership     string `json:"dealership" yaml:"dealership"`
	ServiceType    string `json:"serviceType" yaml:"service_type"`
	Vehicle        string `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
	Notes          string `json:"notes,omitempty" yaml:"notes,omitempty"`
	ConfirmationID string `json:"confirmationId,omitempty" yaml:"confirmation_id,omitempty"`
}

// DealershipAddress is the payload of a dealership_address result
type DealershipAddress struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	Phone   string `json:"phone" yaml:"phone"`
	Hours   string `json:"hours" yaml:"hours"`
}

// RawToolOutput is the payload of an unknown result and the wire shape of tool_output events
type RawToolOutput struct {
	Name   string `json:"name" yaml:"name"`
	Output string `json:"output" yaml:"output"`
}

func (WeatherInfo) Kind() ToolKind             { return KindWeather }
func (DealershipInfo) Kind() ToolKind          { return KindDealership }
func (AppointmentSlots) Kind() ToolKind        { return KindAppointmentSlots }
func (AppointmentConfirmation) Kind() ToolKind { return KindAppointmentConfirmation }
func (DealershipAddress) Kind() ToolKind       { return KindDealershipAddress }
func (RawToolOutput) Kind() ToolKind           { return KindUnknown }

// ToolResult is a display-ready tool output. The tag is derived from Data,
// so it always matches the payload shape.
type ToolResult struct {
	Data ToolData
}

// NewToolResult wraps a variant payload
func NewToolResult(data ToolData) ToolResult {
	return ToolResult{Data: data}
}

// Kind returns the result tag
func (r ToolResult) Kind() ToolKind {
	if r.Data == nil {
		return KindUnknown
	}
	return r.Data.Kind()
}

type toolResultEnvelope struct {
	Type ToolKind        `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes the result as {"type": <tag>, "data": {...}}
func (r ToolResult) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = RawToolOutput{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(toolResultEnvelope{Type: data.Kind(), Data: raw})
}

// UnmarshalJSON decodes the {"type", "data"} envelope, dispatching on the tag
func (r *ToolResult) UnmarshalJSON(b []byte) error {
	var env toolResultEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	data, err := decodeToolData(env.Type, env.Data)
	if err != nil {
		return err
	}
	r.Data = data
	return nil
}

func decodeToolData(kind ToolKind, raw json.RawMessage) (ToolData, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("tool result %q has no data", kind)
	}
	switch kind {
	case KindWeather:
		var d WeatherInfo
		err := json.Unmarshal(raw, &d)
		return d, err
	case KindDealership:
		var d DealershipInfo
		err := json.Unmarshal(raw, &d)
		return d, err
	case KindAppointmentSlots:
		var d AppointmentSlots
		err := json.Unmarshal(raw, &d)
		return d, err
	case KindAppointmentConfirmation:
		var d AppointmentConfirmation
		err := json.Unmarshal(raw, &d)
		return d, err
	case KindDealershipAddress, legacyKindDealershipAddress:
		var d DealershipAddress
		err := json.Unmarshal(raw, &d)
		return d, err
	case KindUnknown:
		var d RawToolOutput
		err := json.Unmarshal(raw, &d)
		return d, err
	default:
		return nil, fmt.Errorf("unsupported tool output type: %s", kind)
	}
}

// Serialize returns the JSON form stored as a tool message's content
func (r ToolResult) Serialize() string {
	b, err := json.Marshal(r)
	if err != nil {
		// every variant is plain strings, numbers and bools
		return fmt.Sprintf(`{"type":%q,"data":{}}`, r.Kind())
	}
	return string(b)
}
