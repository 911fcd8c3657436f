package extraction

import "github.com/geocoder89/taxdesk/internal/domain/document"

type Command struct {
	Path string
	Args []string
}

// Pipeline binds an upload endpoint to the external program that reads the
// document and to the key renames applied to that program's output.
type Pipeline struct {
	Name    string
	Command Command
	Aliases map[string]string
}

// CommandFor appends the requested document type as the last argument.
func (p Pipeline) CommandFor(t document.Type) Command {
	args := make([]string, 0, len(p.Command.Args)+1)
	args = append(args, p.Command.Args...)
	args = append(args, string(t))
	return Command{Path: p.Command.Path, Args: args}
}

func BillsPipeline(interpreter, script string) Pipeline {
	return Pipeline{
		Name:    "bills",
		Command: Command{Path: interpreter, Args: []string{script}},
		Aliases: map[string]string{
			"amount":         "totalAmount",
			"total":          "totalAmount",
			"tax":            "taxAmount",
			"merchant":       "vendor",
			"invoiceNo":      "invoiceNumber",
			"description":    "itemDescription",
			"paymentMode":    "paymentMethod",
			"documentNo":     "documentNumber",
			"maturity":       "maturityDate",
			"lockIn":         "lockInPeriod",
			"taxBenefit":     "taxBenefits",
			"organisation":   "organization",
			"invoice_date":   "date",
			"total_amount":   "totalAmount",
			"tax_amount":     "taxAmount",
			"invoice_number": "invoiceNumber",
		},
	}
}

// SalaryPipeline maps the salary slip extractor's human-readable keys onto
// the spending fields.
func SalaryPipeline(interpreter, script string) Pipeline {
	return Pipeline{
		Name:    "salary",
		Command: Command{Path: interpreter, Args: []string{script}},
		Aliases: map[string]string{
			"Salary Income":          "grossAmount",
			"Gross Salary":           "grossAmount",
			"Net Salary":             "netAmount",
			"Date":                   "date",
			"Concerned Organization": "employer",
			"Employee ID":            "employeeId",
			"TDS Deducted":           "taxDeductions",
			"Other Deductions":       "otherDeductions",
			"Period":                 "period",
			"HRA Exemption":          "hraExemption",
			"ITA Exemption":          "itaExemption",
		},
	}
}
