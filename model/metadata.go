package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/siherrmann/paperqa/helper"
)

// Metadata is a JSONB column.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return m.Marshal()
}

func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal accepts nil, Metadata, []byte and string values.
func (m *Metadata) Unmarshal(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case Metadata:
		*m = v
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return helper.NewError("metadata type assertion", fmt.Errorf("unsupported type %T", value))
	}
}
