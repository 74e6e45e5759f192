package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error is a non-2xx answer carrying the server's detail message, or a
// fallback message when the body had none.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d: %s", e.Status, e.Detail)
}

// decodeError reads resp's body into an *Error. FastAPI sends either
// {"detail": "text"} or, for validation failures, a list of {"msg": ...}.
func decodeError(resp *http.Response, fallback string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	detail := parseDetail(body)
	if detail == "" {
		detail = fallback
	}
	return &Error{Status: resp.StatusCode, Detail: detail}
}

func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
