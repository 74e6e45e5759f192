package api

import (
	"encoding/json"
	"strings"
	"time"
)

// Project is a user-registered target URL.
type Project struct {
	ID          string    `json:"_id"`
	ProjectName string    `json:"projectName"`
	URL         string    `json:"url"`
	UserID      string    `json:"userId,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// UnmarshalJSON accepts the id as either "_id" or "id".
func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	aux := struct {
		*plain
		AltID string `json:"id"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = aux.AltID
	}
	return nil
}

// Issue is one detected accessibility violation. Every field is untrusted.
type Issue struct {
	Guideline   string `json:"guideline"`
	Description string `json:"description"`
	Element     string `json:"element"`
}

// Scan is one accessibility evaluation of a project's URL.
type Scan struct {
	ID                 string    `json:"_id"`
	ProjectID          string    `json:"projectId"`
	ScanType           string    `json:"scanType,omitempty"`
	AccessibilityScore int       `json:"accessibilityScore"`
	Issues             []Issue   `json:"issues"`
	GenericSuggestions []string  `json:"genericSuggestions"`
	AISuggestions      []string  `json:"aiSuggestions"`
	ScreenshotURL      string    `json:"screenshotUrl"`
	CreatedAt          Timestamp `json:"createdAt"`
}

// UnmarshalJSON accepts the id as either "_id" or "id".
func (s *Scan) UnmarshalJSON(data []byte) error {
	type plain Scan
	aux := struct {
		*plain
		AltID string `json:"id"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if s.ID == "" {
		s.ID = aux.AltID
	}
	return nil
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Timestamp decodes the API's datetimes, which may lack a zone offset.
// Zone-less values are UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// null or a non-string: leave zero rather than fail the whole record
		t.Time = time.Time{}
		return nil
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
