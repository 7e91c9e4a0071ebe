package repair

import "fmt"

// NoJSONFoundError reports that no complete top-level JSON object or array could
// be located in a reply.
type NoJSONFoundError struct {
	Reason string // "no opening delimiter" or "unbalanced delimiters"
	Text   string // the fence-stripped text that was scanned
}

func (e *NoJSONFoundError) Error() string {
	return fmt.Sprintf("no JSON found in response: %s", e.Reason)
}

// ExhaustedError reports that a JSON-shaped fragment was found but could not be
// parsed after every repair pass.
type ExhaustedError struct {
	Cause   string // message of the first strict parse failure
	Cleaned string // fully cleaned text of the final attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("json repair exhausted: %s", e.Cause)
}
