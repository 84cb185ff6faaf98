package orderstatus

import (
	"github.com/appetiteclub/orderboard/pkg/enums"
)

const kind = "order"

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	return enums.Label(s.Name)
}

func (s Status) String() string {
	return s.Name
}

// IsZero reports whether the status was never set.
func (s Status) IsZero() bool {
	return s.Name == ""
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

// UnmarshalText rejects values outside the enumeration with an
// *enums.InvalidStateError.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Enum struct {
	Ordered   Status
	Preparing Status
	Ready     Status
	Delivered Status
	Exhausted Status
}

var Statuses = Enum{
	Ordered:   Status{Name: "ORDINATO"},
	Preparing: Status{Name: "IN_PREPARAZIONE"},
	Ready:     Status{Name: "PRONTO"},
	Delivered: Status{Name: "CONSEGNATO"},
	Exhausted: Status{Name: "ORDINATO_ESAURITO"},
}

var All = []Status{
	Statuses.Ordered,
	Statuses.Preparing,
	Statuses.Ready,
	Statuses.Delivered,
	Statuses.Exhausted,
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// Parse returns the status named name or an *enums.InvalidStateError.
func Parse(name string) (Status, error) {
	s := ByName(name)
	if s == nil {
		return Status{}, &enums.InvalidStateError{Kind: kind, Value: name}
	}
	return *s, nil
}
