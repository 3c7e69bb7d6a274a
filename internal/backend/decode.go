package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeList normalizes a list response into a slice of T.
//
//   - a JSON array is decoded as-is
//   - an object with a "content" key is a page wrapper: an array is
//     unwrapped, anything else (null, an object) is an empty page
//   - any other object is treated as a single record
//   - null, empty bodies and scalars yield an empty slice
//
// The returned slice is never nil.
func DecodeList[T any](data []byte) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []T{}, nil
	}

	switch data[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil

	case '{':
		var page map[string]json.RawMessage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		if raw, ok := page["content"]; ok {
			content := bytes.TrimSpace(raw)
			if len(content) > 0 && content[0] == '[' {
				return DecodeList[T](content)
			}
			return []T{}, nil
		}

		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		return []T{item}, nil

	default:
		return []T{}, nil
	}
}

// DecodeOne decodes a single-record response. An empty body or null leaves
// fallback as the result, since some endpoints answer create/update with no body.
func DecodeOne[T any](data []byte, fallback T) (T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || data[0] != '{' {
		return fallback, nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return fallback, fmt.Errorf("decode record: %w", err)
	}
	return item, nil
}
