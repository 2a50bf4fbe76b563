package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// PayloadMap is a string-keyed map of scalar values stored as JSONB. Shape
// validation belongs to the payload-mapping layer upstream; the storage layer
// treats the contents as opaque.
type PayloadMap map[string]any

// Value implements driver.Valuer.
func (p PayloadMap) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (p *PayloadMap) Scan(src any) error {
	if src == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("payload column must be bytes or string")
	}
	if len(raw) == 0 {
		*p = nil
		return nil
	}
	return json.Unmarshal(raw, p)
}

// GormDataType tells GORM which column type backs the map.
func (PayloadMap) GormDataType() string {
	return "jsonb"
}
