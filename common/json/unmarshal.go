package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	E "github.com/sagernet/sing-stream/common/exceptions"
)

type SyntaxError = json.SyntaxError

var (
	Marshal   = json.Marshal
	Unmarshal = json.Unmarshal
)

// UnmarshalExtended decodes content strictly, rejecting unknown fields and
// pointing syntax errors at their row and column.
func UnmarshalExtended[T any](content []byte) (T, error) {
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.DisallowUnknownFields()
	var value T
	err := decoder.Decode(&value)
	if err == nil {
		return value, nil
	}
	var defaultValue T
	var syntaxError *SyntaxError
	if errors.As(err, &syntaxError) {
		prefix := string(content[:syntaxError.Offset])
		row := strings.Count(prefix, "\n") + 1
		column := len(prefix) - strings.LastIndex(prefix, "\n") - 1
		return defaultValue, E.Cause(syntaxError, "row ", row, ", column ", column)
	}
	return defaultValue, err
}
