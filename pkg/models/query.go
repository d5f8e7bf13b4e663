package models

import "encoding/json"

// QueryMetadata is the envelope describing a successful query.
type QueryMetadata struct {
	Total        int     `json:"total"`
	QueryMillis  float64 `json:"query_ms"`
	Truncated    bool    `json:"truncated"`
	PartialError string  `json:"partial_error,omitempty"`
}

// QueryResult wraps all successful query responses. Results hold the
// already-projected ordered field sets.
type QueryResult struct {
	Metadata QueryMetadata `json:"metadata"`
	Results  []Fields      `json:"results"`
}

// ToJSON serializes the result for model consumption.
func (r *QueryResult) ToJSON() (string, error) {
	if r.Results == nil {
		r.Results = []Fields{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// QueryError is the structured payload handed to the model when a query
// fails. It is data, not a Go error: tool failures become tool-result
// turns, never conversation aborts.
type QueryError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryPossible bool   `json:"retry_possible"`
}

// ToJSON serializes the error payload for model consumption.
func (e *QueryError) ToJSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		return `{"code":"internal","message":"failed to serialize error","retry_possible":false}`
	}
	return string(b)
}
