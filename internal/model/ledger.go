package model

// Call invokes a named contract entry point with positional arguments.
type Call struct {
	EntryPoint string
	Args       []interface{}
}

// Receipt is the ledger response to a submitted call.
type Receipt struct {
	TransactionID string
	Confirmed     bool
	Events        []Event
}

type Event struct {
	Type       string
	Attributes map[string]string
	Data       []byte
}

// FindEvent returns the first event of the given type whose attributes contain
// all of match.
func (r Receipt) FindEvent(eventType string, match map[string]string) (Event, bool) {
	for _, event := range r.Events {
		if event.Type != eventType {
			continue
		}
		matches := true
		for key, value := range match {
			if event.Attributes[key] != value {
				matches = false
				break
			}
		}
		if matches {
			return event, true
		}
	}
	return Event{}, false
}
