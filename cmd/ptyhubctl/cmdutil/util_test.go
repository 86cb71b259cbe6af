package cmdutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestBoolToYesNo(t *testing.T) {
	if got := BoolToYesNo(true); got != "yes" {
		t.Errorf("BoolToYesNo(true) = %q, want %q", got, "yes")
	}
	if got := BoolToYesNo(false); got != "no" {
		t.Errorf("BoolToYesNo(false) = %q, want %q", got, "no")
	}
}

func TestEmptyOr(t *testing.T) {
	if got := EmptyOr("value", "-"); got != "value" {
		t.Errorf("EmptyOr(value, -) = %q, want %q", got, "value")
	}
	if got := EmptyOr("", "-"); got != "-" {
		t.Errorf("EmptyOr(empty, -) = %q, want %q", got, "-")
	}
}

type fakeTable struct{}

func (fakeTable) Headers() []string { return []string{"NAME"} }
func (fakeTable) Rows() [][]string  { return [][]string{{"build"}} }

func TestPrintOutputJSON(t *testing.T) {
	Flags.Output = "json"
	defer func() { Flags.Output = "table" }()

	var buf bytes.Buffer
	err := PrintOutput(&buf, map[string]string{"name": "build"}, false, "", fakeTable{})
	if err != nil {
		t.Fatalf("PrintOutput returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"name"`) {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}

func TestPrintOutputEmptyTable(t *testing.T) {
	Flags.Output = "table"

	var buf bytes.Buffer
	err := PrintOutput(&buf, nil, true, "Nothing here.", fakeTable{})
	if err != nil {
		t.Fatalf("PrintOutput returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "Nothing here.") {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}
