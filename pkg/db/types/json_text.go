package dbtypes

import (
	"database/sql/driver"
	"fmt"
)

// JSONText is a JSON document stored in a text column. It is written as a
// string so both the SQLite and Postgres drivers accept it without a cast.
type JSONText []byte

func (j *JSONText) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case string:
		*j = JSONText(v)
	case []byte:
		buf := make([]byte, len(v))
		copy(buf, v)
		*j = JSONText(buf)
	default:
		return fmt.Errorf("JSONText: unsupported Scan type %T", src)
	}
	return nil
}

func (j JSONText) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return string(j), nil
}

// MarshalJSON emits the document verbatim.
func (j JSONText) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores a copy of the raw document.
func (j *JSONText) UnmarshalJSON(data []byte) error {
	if j == nil {
		return fmt.Errorf("JSONText: UnmarshalJSON on nil pointer")
	}
	*j = append((*j)[0:0], data...)
	return nil
}
