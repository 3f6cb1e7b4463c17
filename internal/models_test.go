package internal

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestToolResult_MarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		result ToolResult
		want   string
	}{
		{
			name:   "weather",
			result: NewToolResult(WeatherInfo{Temperature: 21.5, Condition: "Sunny", Humidity: 40, WindSpeed: 12}),
			want:   `{"type":"weather","data":{"temperature":21.5,"condition":"Sunny","humidity":40,"windSpeed":12}}`,
		},
		{
			name: "slots without vehicle",
			result: NewToolResult(AppointmentSlots{
				TimeSlots:  []TimeSlot{{Time: "9:00", Available: true}},
				Date:       "19/03/2025",
				Dealership: "5th Avenue, New York",
			}),
			want: `{"type":"appointment_slots","data":{"timeSlots":[{"time":"9:00","available":true}],"date":"19/03/2025","dealership":"5th Avenue, New York"}}`,
		},
		{
			name: "confirmation",
			result: NewToolResult(AppointmentConfirmation{
				Date: "20/03/2025", Time: "11:00", Dealership: "d", ServiceType: "Test Drive", ConfirmationID: "XYZ-1",
			}),
			want: `{"type":"appointment_confirmation","data":{"date":"20/03/2025","time":"11:00","dealership":"d","serviceType":"Test Drive","confirmationId":"XYZ-1"}}`,
		},
		{
			name:   "unknown",
			result: NewToolResult(RawToolOutput{Name: "error", Output: "Failed to process tool output"}),
			want:   `{"type":"unknown","data":{"name":"error","output":"Failed to process tool output"}}`,
		},
		{
			name:   "empty result",
			result: ToolResult{},
			want:   `{"type":"unknown","data":{"name":"","output":""}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Serialize(); got != tt.want {
				t.Errorf("Serialize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestToolResult_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ToolData
		wantErr bool
	}{
		{
			name:  "dealership",
			input: `{"type":"dealership","data":{"name":"Super Cars","address":"5th Avenue","phone":"1","hours":"9-5"}}`,
			want:  DealershipInfo{Name: "Super Cars", Address: "5th Avenue", Phone: "1", Hours: "9-5"},
		},
		{
			name:  "legacy address tag",
			input: `{"type":"get_dealership_address","data":{"name":"Dealership Location","address":"Main St"}}`,
			want:  DealershipAddress{Name: "Dealership Location", Address: "Main St"},
		},
		{
			name:    "unsupported tag",
			input:   `{"type":"horoscope","data":{}}`,
			wantErr: true,
		},
		{
			name:    "missing data",
			input:   `{"type":"weather"}`,
			wantErr: true,
		},
		{
			name:    "wrong field type",
			input:   `{"type":"weather","data":{"temperature":"hot"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ToolResult
			err := json.Unmarshal([]byte(tt.input), &r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(r.Data, tt.want) {
				t.Errorf("Data = %#v, want %#v", r.Data, tt.want)
			}
		})
	}
}

func TestToolResult_LegacyTagNormalized(t *testing.T) {
	var r ToolResult
	if err := json.Unmarshal([]byte(`{"type":"get_dealership_address","data":{"address":"x"}}`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Kind() != KindDealershipAddress {
		t.Errorf("Kind() = %q, want %q", r.Kind(), KindDealershipAddress)
	}
	if !strings.Contains(r.Serialize(), `"type":"dealership_address"`) {
		t.Errorf("Serialize() = %s, want the current tag", r.Serialize())
	}
}
