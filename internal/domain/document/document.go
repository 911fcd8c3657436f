package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Type string

const (
	TypeBills      Type = "bills"
	TypeInvestment Type = "investment"
	TypeSpending   Type = "spending"
)

var ErrUnknownType = errors.New("unknown document type")

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeBills, TypeInvestment, TypeSpending:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// ExtractedData is one persisted extraction result. It is immutable once stored.
type ExtractedData struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user"`
	DocumentType     Type      `json:"documentType"`
	Extracted        Payload   `json:"extracted"`
	OriginalFileName string    `json:"originalFileName"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type CreateExtractedDataRequest struct {
	UserID           string
	DocumentType     Type
	Extracted        Payload
	OriginalFileName string
}

// Payload is the typed extraction result; the concrete type always matches DocumentType().
type Payload interface {
	DocumentType() Type
}

// NewPayload returns an empty variant for t.
func NewPayload(t Type) (Payload, error) {
	switch t {
	case TypeBills:
		return &Bill{}, nil
	case TypeInvestment:
		return &Investment{}, nil
	case TypeSpending:
		return &Spending{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
}

// UnmarshalStored decodes a payload previously written by json.Marshal of the same variant.
func UnmarshalStored(t Type, data []byte) (Payload, error) {
	p, err := NewPayload(t)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}

	return p, nil
}
