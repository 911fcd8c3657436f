package extraction

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geocoder89/taxdesk/internal/domain/document"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "aliases.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestAliasOverrides_Apply(t *testing.T) {
	path := writeFile(t, "salary:\n  Take Home Pay: netAmount\n  Net Salary: grossAmount\n")

	overrides, err := LoadAliasOverrides(path)
	if err != nil {
		t.Fatalf("LoadAliasOverrides: %v", err)
	}

	base := SalaryPipeline("python3", "salary.py")
	pipelines, err := overrides.Apply(BillsPipeline("python3", "bill.py"), base)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	salary := pipelines[1]
	if salary.Aliases["Take Home Pay"] != "netAmount" {
		t.Fatalf("override not merged: %v", salary.Aliases)
	}
	if salary.Aliases["Net Salary"] != "grossAmount" {
		t.Fatalf("override should win over built-in alias")
	}
	if base.Aliases["Net Salary"] != "netAmount" {
		t.Fatalf("built-in pipeline was mutated")
	}

	payload, err := ParseOutput([]byte(`{"Take Home Pay": "52,000"}`), document.TypeSpending, salary.Aliases)
	if err != nil {
		t.Fatalf("ParseOutput: %v", err)
	}
	if s := payload.(*document.Spending); s.NetAmount == nil || s.NetAmount.String() != "52000" {
		t.Fatalf("unexpected net amount: %+v", s)
	}
}

func TestAliasOverrides_Errors(t *testing.T) {
	if _, err := LoadAliasOverrides(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	if _, err := LoadAliasOverrides(writeFile(t, "bills: [not, a, map]\n")); err == nil {
		t.Fatalf("expected parse error")
	}

	if _, err := LoadAliasOverrides(writeFile(t, "bills:\n  total: \"\"\n")); err == nil {
		t.Fatalf("expected error for empty target")
	}

	overrides := AliasOverrides{"receipts": {"a": "b"}}
	_, err := overrides.Apply(BillsPipeline("python3", "bill.py"))
	if err == nil || !strings.Contains(err.Error(), "receipts") {
		t.Fatalf("expected unknown pipeline error, got %v", err)
	}
}
