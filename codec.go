package manila

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type HasMarshal interface {
	Marshal(v interface{}) ([]byte, error)
}

type HasUnmarshal interface {
	Unmarshal(data []byte, v interface{}) error
}

// Marshaller and Unmarshaller encode records on their way to and from
// adapters. Swap them out to change the wire encoding module-wide.
var Marshaller HasMarshal = json
var Unmarshaller HasUnmarshal = json

// copyRecord deep-copies a record through the codec, normalizing every value
// to its plain JSON form (numbers become float64). Adapters hand out copies
// so callers never alias backend state.
func copyRecord(record map[string]any) (map[string]any, error) {
	if record == nil {
		return nil, nil
	}
	raw, err := Marshaller.Marshal(record)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := Unmarshaller.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// withID returns a copy of record with "_id" set, leaving the input untouched.
func withID(record map[string]any, id string) map[string]any {
	out := make(map[string]any, len(record)+1)
	for k, v := range record {
		out[k] = v
	}
	out["_id"] = id
	return out
}

// stringValue renders an identifier-ish value to the string form the contract
// uses. Nil renders empty, everything non-string goes through fmt.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}
