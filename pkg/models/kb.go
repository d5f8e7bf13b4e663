package models

import "encoding/json"

// Knowledge base result types.
const (
	SearchTypeSimilarIncidents = "similar_incidents"
	SearchTypePlaybooks        = "playbooks"
)

// Search confidence levels, derived from vector distance.
const (
	ConfidenceNormal = "normal"
	ConfidenceLow    = "low"
)

// SearchItem is one knowledge base hit. Distance is deliberately not
// part of the wire shape; the model only sees the confidence bucket.
type SearchItem struct {
	Document   string            `json:"document"`
	Metadata   map[string]string `json:"metadata"`
	Confidence string            `json:"confidence"`
}

// SearchResult is the serializable outcome of a knowledge base search.
// LowConfidenceWarning is set only when every hit is low confidence.
type SearchResult struct {
	Type                 string       `json:"type"`
	Results              []SearchItem `json:"results"`
	LowConfidenceWarning bool         `json:"low_confidence_warning"`
	Total                int          `json:"total"`
}

// ToJSON serializes the result for the tool-result channel.
func (r *SearchResult) ToJSON() (string, error) {
	if r.Results == nil {
		r.Results = []SearchItem{}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
