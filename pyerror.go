package mayaboot

import "fmt"

// PythonError represents a fault raised inside the bridged Python
// interpreter. It carries the exception class, message, and full traceback
// so the caller can surface what would otherwise only appear in the host's
// script editor output.
type PythonError struct {
	// Exception is the exception class name (e.g., "ImportError").
	Exception string `json:"exception" msgpack:"exception"`

	// Message is the exception message.
	Message string `json:"message" msgpack:"message"`

	// Traceback is the full Python traceback string.
	Traceback string `json:"traceback" msgpack:"traceback"`
}

// Error implements the error interface.
func (e *PythonError) Error() string {
	if e.Traceback != "" {
		return fmt.Sprintf("%s: %s\n%s", e.Exception, e.Message, e.Traceback)
	}
	return fmt.Sprintf("%s: %s", e.Exception, e.Message)
}
