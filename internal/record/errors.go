package record

// Errors is a record's validation error collection: messages keyed by
// field, in the order fields first failed.
type Errors struct {
	fields   []string
	messages map[string][]string
}

// FieldError is one (field, message) entry.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Add records a message for field.
func (e *Errors) Add(field, message string) {
	if e.messages == nil {
		e.messages = make(map[string][]string)
	}
	if _, exists := e.messages[field]; !exists {
		e.fields = append(e.fields, field)
	}
	e.messages[field] = append(e.messages[field], message)
}

// Empty reports whether no error has been recorded.
func (e *Errors) Empty() bool {
	return e == nil || len(e.fields) == 0
}

// Len returns the number of messages across all fields.
func (e *Errors) Len() int {
	if e == nil {
		return 0
	}
	n := 0
	for _, msgs := range e.messages {
		n += len(msgs)
	}
	return n
}

// On returns the messages recorded for field.
func (e *Errors) On(field string) []string {
	if e == nil {
		return nil
	}
	return append([]string(nil), e.messages[field]...)
}

// Entries flattens the collection, preserving field order and message order.
func (e *Errors) Entries() []FieldError {
	if e == nil {
		return nil
	}
	out := make([]FieldError, 0, e.Len())
	for _, f := range e.fields {
		for _, msg := range e.messages[f] {
			out = append(out, FieldError{Field: f, Message: msg})
		}
	}
	return out
}

// Clear removes every message.
func (e *Errors) Clear() {
	e.fields = nil
	e.messages = nil
}
