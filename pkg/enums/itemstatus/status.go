package itemstatus

import (
	"github.com/appetiteclub/orderboard/pkg/enums"
)

const kind = "item"

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

// ItemStatus lets a bare state stand in wherever an item is expected.
func (s Status) ItemStatus() Status {
	return s
}

func (s Status) IsZero() bool {
	return s.Name == ""
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Name), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Enum struct {
	Submitted Status
	Working   Status
	Ready     Status
	Delivered Status
}

var Statuses = Enum{
	Submitted: Status{Name: "INSERITO"},
	Working:   Status{Name: "IN_LAVORAZIONE"},
	Ready:     Status{Name: "PRONTO"},
	Delivered: Status{Name: "CONSEGNATO"},
}

// All lists the item states in pipeline order.
var All = []Status{
	Statuses.Submitted,
	Statuses.Working,
	Statuses.Ready,
	Statuses.Delivered,
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
