package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PolicyDocument is one governance rule of the retrieval corpus together with its embedding.
type PolicyDocument struct {
	ID        string    `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt *time.Time
	Text      string `gorm:"not null;type:TEXT"`
	Embedding Vector `gorm:"not null;type:TEXT"`
}

type PolicyDocumentList []PolicyDocument

func (p PolicyDocument) String() string {
	val, _ := json.Marshal(p)
	return string(val)
}

// Vector is stored as a JSON array so the same schema works on sqlite and postgres.
type Vector []float32

func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *Vector) Scan(value any) error {
	var raw []byte
	switch t := value.(type) {
	case nil:
		*v = nil
		return nil
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return fmt.Errorf("unsupported vector column type %T", value)
	}
	if len(raw) == 0 {
		return errors.New("empty vector column")
	}
	return json.Unmarshal(raw, (*[]float32)(v))
}
