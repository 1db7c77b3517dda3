package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/UkralStul/postboard/internal/domain"
)

// Reply is a successful response. A reply without payload (204 or empty body)
// has an empty Raw. JSON is nil when the body did not parse, in which case Raw
// still holds the text as sent.
type Reply struct {
	Status int
	Raw    string
	JSON   json.RawMessage
}

// Empty reports a reply that carried no payload.
func (r *Reply) Empty() bool { return r == nil || r.Raw == "" }

// Post decodes the reply as a single post. Anything other than a JSON object
// with a non-empty id is a contract failure.
func (r *Reply) Post() (*domain.Post, error) {
	if r.Empty() || r.JSON == nil {
		return nil, contractError(ErrInvalidResponse.Error(), ErrInvalidResponse)
	}
	if trimmed := bytes.TrimSpace(r.JSON); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, contractError(ErrInvalidResponse.Error(), ErrInvalidResponse)
	}
	var p domain.Post
	if err := json.Unmarshal(r.JSON, &p); err != nil {
		return nil, contractError(ErrInvalidResponse.Error(), fmt.Errorf("%w: %v", ErrInvalidResponse, err))
	}
	if p.ID == "" {
		return nil, contractError(ErrInvalidResponse.Error(), ErrInvalidResponse)
	}
	return &p, nil
}

// readResponse reads the whole body as text before interpreting it, so an
// empty body is never confused with a parse failure.
func readResponse(resp *http.Response) (*Reply, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: Transport, Status: resp.StatusCode, Message: err.Error(), Err: err}
	}
	text := string(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:    Protocol,
			Status:  resp.StatusCode,
			Message: failureMessage(resp.StatusCode, raw),
		}
	}

	if resp.StatusCode == http.StatusNoContent || strings.TrimSpace(text) == "" {
		return &Reply{Status: resp.StatusCode}, nil
	}

	reply := &Reply{Status: resp.StatusCode, Raw: text}
	if json.Valid(raw) {
		reply.JSON = json.RawMessage(raw)
	}
	return reply, nil
}

// failureMessage picks the error text for a non-2xx response: the JSON
// "message" field, else the compact JSON body, else the raw body, else the
// status description.
func failureMessage(status int, raw []byte) string {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if obj, ok := parsed.(map[string]any); ok {
			if msg := messageText(obj["message"]); msg != "" {
				return msg
			}
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil && buf.Len() > 0 {
			return buf.String()
		}
	}
	if text := string(raw); text != "" {
		return text
	}
	if desc := http.StatusText(status); desc != "" {
		return desc
	}
	return "status " + strconv.Itoa(status)
}

func messageText(v any) string {
	switch m := v.(type) {
	case nil:
		return ""
	case string:
		return m
	case bool:
		if m {
			return "true"
		}
		return ""
	case float64:
		if m == 0 {
			return ""
		}
		return strconv.FormatFloat(m, 'f', -1, 64)
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
