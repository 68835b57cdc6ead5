package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON is a free-form map stored as JSON text
type JSON map[string]any

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("domain: cannot scan %T into JSON", value)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*j = nil
		return nil
	}
	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*j = m
	return nil
}

// GormDataType keeps the column as text on every dialect
func (JSON) GormDataType() string {
	return "text"
}
