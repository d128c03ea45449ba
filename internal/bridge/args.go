package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// ValidationError reports a missing or malformed command argument. No vendor
// call is made once one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid args: " + e.Reason
	}
	return e.Field + " " + e.Reason
}

func missing(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}

// Snowflake is a 64-bit vendor id. It decodes from a JSON string or number
// and always encodes as a string.
type Snowflake uint64

func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

func (s *Snowflake) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("expected snowflake id as decimal string or number, got %s", string(data))
	}
	*s = Snowflake(id)
	return nil
}

// decodeArgs decodes a command's args object. Absent args decode to the zero
// value so required-field checks report the missing field by name.
func decodeArgs[T any](raw json.RawMessage) (T, error) {
	var args T
	if len(bytes.TrimSpace(raw)) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, &ValidationError{Reason: err.Error()}
	}
	return args, nil
}

func requireID(field string, id *Snowflake) (uint64, error) {
	if id == nil {
		return 0, missing(field)
	}
	if *id == 0 {
		return 0, &ValidationError{Field: field, Reason: "must be non-zero"}
	}
	return uint64(*id), nil
}

func requireString(field string, value *string) (string, error) {
	if value == nil || *value == "" {
		return "", missing(field)
	}
	return *value, nil
}

// requireContent rejects text the C boundary would truncate.
func requireContent(value *string) (string, error) {
	content, err := requireString("content", value)
	if err != nil {
		return "", err
	}
	if strings.IndexByte(content, 0) >= 0 {
		return "", &ValidationError{Field: "content", Reason: "must not contain NUL bytes"}
	}
	return content, nil
}

func requireBool(field string, value *bool) (bool, error) {
	if value == nil {
		return false, missing(field)
	}
	return *value, nil
}

func messageLimit(limit *int) (int, error) {
	if limit == nil {
		return defaultMessageLimit, nil
	}
	if *limit <= 0 {
		return 0, &ValidationError{Field: "limit", Reason: "must be positive"}
	}
	return min(*limit, maxMessageLimit), nil
}
