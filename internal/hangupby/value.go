package hangupby

import (
	"errors"
	"fmt"
)

// Value is the persisted "who hung up" classification.
// The string form is written verbatim to conversations.hang_up_by; keep it stable.
type Value string

const (
	Customer                      Value = "Customer"
	Agent                         Value = "Agent"
	ColdTransfer                  Value = "Cold Transfer"
	ExternalColdTransfer          Value = "External Cold Transfer"
	WarmTransfer                  Value = "Warm Transfer"
	Consult                       Value = "Consult"
	ExternalWarmTransfer          Value = "External Warm Transfer"
	CompletedExternalWarmTransfer Value = "CompletedExternalWarmTransfer"
)

var ErrInvalidValue = errors.New("hangupby: invalid value")

var allValues = []Value{
	Customer,
	Agent,
	ColdTransfer,
	ExternalColdTransfer,
	WarmTransfer,
	Consult,
	ExternalWarmTransfer,
	CompletedExternalWarmTransfer,
}

// Values returns every known classification.
func Values() []Value {
	out := make([]Value, len(allValues))
	copy(out, allValues)
	return out
}

func (v Value) Valid() bool {
	for _, known := range allValues {
		if v == known {
			return true
		}
	}
	return false
}

func ParseValue(s string) (Value, error) {
	v := Value(s)
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidValue, s)
	}
	return v, nil
}
