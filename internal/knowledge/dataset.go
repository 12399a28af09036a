package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Record is one dataset entry.
type Record struct {
	// StringID is set only when the source id was a JSON string.
	StringID   string
	OriginalID string
	Question   string
	Answer     string
	Steps      string
	Level      string
	Type       string
	Category   string
	Difficulty int
}

type rawRecord struct {
	ID         json.RawMessage `json:"id"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Steps      json.RawMessage `json:"steps"`
	Level      string          `json:"level"`
	Type       string          `json:"type"`
	Category   string          `json:"category"`
	Difficulty *int            `json:"difficulty"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{
		Question:   raw.Question,
		Answer:     raw.Answer,
		Steps:      flattenSteps(raw.Steps),
		Level:      raw.Level,
		Type:       raw.Type,
		Category:   raw.Category,
		Difficulty: 1,
	}
	if raw.Difficulty != nil {
		r.Difficulty = *raw.Difficulty
	}

	if len(raw.ID) > 0 && string(raw.ID) != "null" {
		var s string
		if err := json.Unmarshal(raw.ID, &s); err == nil {
			r.StringID = s
			r.OriginalID = s
		} else {
			r.OriginalID = strings.TrimSpace(string(raw.ID))
		}
	}
	return nil
}

// flattenSteps accepts steps as a string or a list of strings.
func flattenSteps(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "\n")
	}
	return ""
}

// Payload converts the record into what the index stores.
func (r Record) Payload() Payload {
	return Payload{
		Question:   r.Question,
		Answer:     r.Answer,
		Steps:      r.Steps,
		Level:      r.Level,
		Type:       r.Type,
		Category:   r.Category,
		Difficulty: r.Difficulty,
		OriginalID: r.OriginalID,
	}
}

// LoadDataset reads path, falling back to samplePath when path does not
// exist.
func LoadDataset(path, samplePath string) ([]Record, string, error) {
	for _, candidate := range []string{path, samplePath} {
		if candidate == "" {
			continue
		}
		data, err := os.ReadFile(candidate)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, candidate, fmt.Errorf("failed to read dataset %s: %w", candidate, err)
		}

		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, candidate, fmt.Errorf("failed to parse dataset %s: %w", candidate, err)
		}
		return records, candidate, nil
	}

	return nil, "", fmt.Errorf("neither %s nor %s found", path, samplePath)
}
