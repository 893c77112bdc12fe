package extract

import "fmt"

// ExtractionError reports input that cannot be treated as an HTML document.
type ExtractionError struct {
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %s", e.Reason)
}

// Code is the stable machine code for API responses.
func (e *ExtractionError) Code() string {
	return "EXTRACTION_ERROR"
}
