package teesheet

import "encoding/json"

// Fallback messages for failures whose response body carries nothing usable.
const (
	genericFetchError  = "failed to fetch tee times"
	genericCreateError = "failed to create booking"
)

// errorEnvelope models the two error shapes the booking service is known to
// return: a top-level "message" or a nested "error.message".
type errorEnvelope struct {
	Message string `json:"message"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// decodeErrorMessage extracts a human-readable message from an error response
// body. Fallback order is part of the service contract: "message", then
// "error.message", then the supplied generic message.
func decodeErrorMessage(body []byte, generic string) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return generic
	}
	if env.Message != "" {
		return env.Message
	}
	if env.Error != nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return generic
}
