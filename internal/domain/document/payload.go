package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrNoRecognisedFields = errors.New("payload has no recognised fields")

type Bill struct {
	TotalAmount     *Amount        `json:"totalAmount,omitempty"`
	Date            string         `json:"date,omitempty"`
	Vendor          string         `json:"vendor,omitempty"`
	InvoiceNumber   string         `json:"invoiceNumber,omitempty"`
	ItemDescription string         `json:"itemDescription,omitempty"`
	Category        string         `json:"category,omitempty"`
	PaymentMethod   string         `json:"paymentMethod,omitempty"`
	TaxAmount       *Amount        `json:"taxAmount,omitempty"`
	Other           map[string]any `json:"other,omitempty"`
}

func (*Bill) DocumentType() Type { return TypeBills }

func (b *Bill) assign(key string, raw json.RawMessage) bool {
	switch key {
	case "totalAmount":
		return setAmount(&b.TotalAmount, raw)
	case "date":
		return setText(&b.Date, raw)
	case "vendor":
		return setText(&b.Vendor, raw)
	case "invoiceNumber":
		return setText(&b.InvoiceNumber, raw)
	case "itemDescription":
		return setText(&b.ItemDescription, raw)
	case "category":
		return setText(&b.Category, raw)
	case "paymentMethod":
		return setText(&b.PaymentMethod, raw)
	case "taxAmount":
		return setAmount(&b.TaxAmount, raw)
	}
	return false
}

type Investment struct {
	TotalAmount    *Amount        `json:"totalAmount,omitempty"`
	Date           string         `json:"date,omitempty"`
	Organization   string         `json:"organization,omitempty"`
	DocumentNumber string         `json:"documentNumber,omitempty"`
	InvestmentType string         `json:"investmentType,omitempty"`
	PaymentMethod  string         `json:"paymentMethod,omitempty"`
	LockInPeriod   string         `json:"lockInPeriod,omitempty"`
	MaturityDate   string         `json:"maturityDate,omitempty"`
	TaxBenefits    string         `json:"taxBenefits,omitempty"`
	Other          map[string]any `json:"other,omitempty"`
}

func (*Investment) DocumentType() Type { return TypeInvestment }

func (i *Investment) assign(key string, raw json.RawMessage) bool {
	switch key {
	case "totalAmount":
		return setAmount(&i.TotalAmount, raw)
	case "date":
		return setText(&i.Date, raw)
	case "organization":
		return setText(&i.Organization, raw)
	case "documentNumber":
		return setText(&i.DocumentNumber, raw)
	case "investmentType":
		return setText(&i.InvestmentType, raw)
	case "paymentMethod":
		return setText(&i.PaymentMethod, raw)
	case "lockInPeriod":
		return setText(&i.LockInPeriod, raw)
	case "maturityDate":
		return setText(&i.MaturityDate, raw)
	case "taxBenefits":
		return setText(&i.TaxBenefits, raw)
	}
	return false
}

// Spending covers salary and other income statements.
type Spending struct {
	GrossAmount     *Amount        `json:"grossAmount,omitempty"`
	NetAmount       *Amount        `json:"netAmount,omitempty"`
	Date            string         `json:"date,omitempty"`
	Employer        string         `json:"employer,omitempty"`
	EmployeeID      string         `json:"employeeId,omitempty"`
	TaxDeductions   *Amount        `json:"taxDeductions,omitempty"`
	OtherDeductions *Amount        `json:"otherDeductions,omitempty"`
	Period          string         `json:"period,omitempty"`
	HRAExemption    *Amount        `json:"hraExemption,omitempty"`
	ITAExemption    *Amount        `json:"itaExemption,omitempty"`
	Other           map[string]any `json:"other,omitempty"`
}

func (*Spending) DocumentType() Type { return TypeSpending }

func (s *Spending) assign(key string, raw json.RawMessage) bool {
	switch key {
	case "grossAmount":
		return setAmount(&s.GrossAmount, raw)
	case "netAmount":
		return setAmount(&s.NetAmount, raw)
	case "date":
		return setText(&s.Date, raw)
	case "employer":
		return setText(&s.Employer, raw)
	case "employeeId":
		return setText(&s.EmployeeID, raw)
	case "taxDeductions":
		return setAmount(&s.TaxDeductions, raw)
	case "otherDeductions":
		return setAmount(&s.OtherDeductions, raw)
	case "period":
		return setText(&s.Period, raw)
	case "hraExemption":
		return setAmount(&s.HRAExemption, raw)
	case "itaExemption":
		return setAmount(&s.ITAExemption, raw)
	}
	return false
}

type assigner interface {
	Payload
	assign(key string, raw json.RawMessage) bool
}

// Decode builds the variant for t from a flat JSON object. Keys the variant
// does not know, and known keys whose value cannot be read, are kept in Other.
func Decode(t Type, fields map[string]json.RawMessage) (Payload, error) {
	p, err := NewPayload(t)
	if err != nil {
		return nil, err
	}
	a := p.(assigner)

	other := make(map[string]any)
	recognised := 0

	for key, raw := range fields {
		if a.assign(key, raw) {
			recognised++
			continue
		}

		var v any
		if err := json.Unmarshal(raw, &v); err == nil && v != nil && v != "" {
			other[key] = v
		}
	}

	if recognised == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoRecognisedFields, t)
	}

	if len(other) > 0 {
		switch v := p.(type) {
		case *Bill:
			v.Other = other
		case *Investment:
			v.Other = other
		case *Spending:
			v.Other = other
		}
	}

	return p, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func setAmount(dst **Amount, raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}

	var a Amount
	if err := json.Unmarshal(raw, &a); err != nil {
		return false
	}
	*dst = &a
	return true
}

// setText accepts strings and numbers; extractors emit invoice numbers either way.
func setText(dst *string, raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return false
		}
		*dst = s
		return true
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		*dst = n.String()
		return true
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		*dst = strconv.FormatBool(b)
		return true
	}

	return false
}
