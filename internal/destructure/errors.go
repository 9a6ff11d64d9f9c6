package destructure

import "fmt"

// ErrLogValuePanic is recorded when a LogValue method panics during conversion.
type ErrLogValuePanic struct {
	Key        string
	PanicValue any
	StackTrace string
}

func (e *ErrLogValuePanic) Error() string {
	return fmt.Sprintf("LogValue() panicked for attribute %q: %v", e.Key, e.PanicValue)
}
