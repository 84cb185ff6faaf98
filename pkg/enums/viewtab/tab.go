package viewtab

// Tab names a station-facing bucket of in-flight orders.
type Tab struct {
	Name string
}

func (t Tab) Code() string {
	return t.Name
}

type Enum struct {
	Exhausted Tab
	Waiting   Tab
	Preparing Tab
	Ready     Tab
	PickedUp  Tab
}

var Tabs = Enum{
	Exhausted: Tab{Name: "esauriti"},
	Waiting:   Tab{Name: "attesa"},
	Preparing: Tab{Name: "preparazione"},
	Ready:     Tab{Name: "pronti"},
	PickedUp:  Tab{Name: "ritirati"},
}

var All = []Tab{
	Tabs.Exhausted,
	Tabs.Waiting,
	Tabs.Preparing,
	Tabs.Ready,
	Tabs.PickedUp,
}

// ByName returns the tab for a given name, or nil if not found.
// Matching is exact.
func ByName(name string) *Tab {
	for _, t := range All {
		if t.Name == name {
			return &t
		}
	}
	return nil
}
