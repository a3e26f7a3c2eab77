package types

// FlowKind names one of the supported slot-filling dialogues.
type FlowKind string

const (
	FlowRegistration FlowKind = "registration"
	FlowBooking      FlowKind = "booking"
)

type Status string

const (
	StatusCollecting Status = "collecting"
	StatusComplete   Status = "complete"
)

// Registration fields, in the order they are requested.
const (
	FieldFullName    = "fullName"
	FieldCategory    = "category"
	FieldLocation    = "location"
	FieldPhoneNumber = "phoneNumber"
	FieldExperience  = "experience"
)

// Booking slots. FieldCategory is shared with registration.
const (
	FieldDate = "date"
	FieldTime = "time"
)

type FieldInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Names returns the field names in declaration order.
func Names(fields []FieldInfo) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

// Contains reports whether name is one of fields.
func Contains(fields []FieldInfo, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
