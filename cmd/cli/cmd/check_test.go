package cmd

import (
	"strings"
	"testing"
)

func TestCheckCommand_Valid(t *testing.T) {
	resetViper()

	output, err := execute(t, "", "check", writeProgram(t, "table\tco2.csv\tco2\ncolumns\tco2\n\tslug\n\tyear\n\n"+program))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Gases", "is valid", "Gas (Radio): co2, ch4", "table co2: 1 declared columns", "Views:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestCheckCommand_Invalid(t *testing.T) {
	resetViper()

	output, err := execute(t, "", "check", writeProgram(t, "isPublished\tmaybe\ntable"))
	if err == nil {
		t.Fatal("expected an error for an invalid program")
	}
	if !strings.Contains(output, "isPublished must be true or false") || !strings.Contains(output, "table has no path") {
		t.Errorf("expected every problem in output, got: %s", output)
	}
}

func TestCheckCommand_Stdin(t *testing.T) {
	resetViper()

	output, err := execute(t, program, "check", "-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "Gases") {
		t.Errorf("expected title in output, got: %s", output)
	}
}

func TestSlugFromPath(t *testing.T) {
	tests := map[string]string{
		"explorers/CO2 Emissions.tsv": "co2-emissions",
		"gases.tsv":                   "gases",
		"-":                           "stdin",
	}
	for path, want := range tests {
		if got := slugFromPath(path); got != want {
			t.Errorf("slugFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
