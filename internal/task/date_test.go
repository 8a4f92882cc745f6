//nolint:testpackage // Tests require internal access for thorough testing
package task

import (
	"encoding/json"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.Year != 2026 || d.Month != time.February || d.Day != 28 {
		t.Errorf("ParseDate = %+v", d)
	}
	if d.String() != "2026-02-28" {
		t.Errorf("String() = %q", d.String())
	}

	if _, err := ParseDate("2026-02-30"); err == nil {
		t.Error("ParseDate should reject Feb 30")
	}
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		from string
		n    int
		want string
	}{
		{"2026-01-31", 1, "2026-02-01"},
		{"2024-02-28", 1, "2024-02-29"},
		{"2026-12-31", 1, "2027-01-01"},
		{"2026-03-01", -1, "2026-02-28"},
		{"2026-01-10", 0, "2026-01-10"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			if got := MustParseDate(tt.from).AddDays(tt.n).String(); got != tt.want {
				t.Errorf("AddDays(%d) = %s, want %s", tt.n, got, tt.want)
			}
		})
	}
}

func TestDaysUntil(t *testing.T) {
	a := MustParseDate("2026-03-01")
	b := MustParseDate("2026-03-31")
	if got := a.DaysUntil(b); got != 30 {
		t.Errorf("DaysUntil = %d, want 30", got)
	}
	if got := b.DaysUntil(a); got != -30 {
		t.Errorf("DaysUntil = %d, want -30", got)
	}
}

func TestDateTextEncoding(t *testing.T) {
	type wrapper struct {
		Due  Date  `json:"due"  yaml:"due"`
		Opt  *Date `json:"opt"  yaml:"opt,omitempty"`
		List []Date `json:"list" yaml:"list"`
	}

	in := wrapper{Due: MustParseDate("2026-01-10"), List: []Date{MustParseDate("2026-01-09")}}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if string(data) != `{"due":"2026-01-10","opt":null,"list":["2026-01-09"]}` {
		t.Errorf("json = %s", data)
	}

	var fromYAML wrapper
	if err := yaml.Unmarshal([]byte("due: 2026-01-10\nlist:\n  - 2026-01-09\n"), &fromYAML); err != nil {
		t.Fatalf("yaml.Unmarshal failed: %v", err)
	}
	if fromYAML.Due != in.Due || len(fromYAML.List) != 1 || fromYAML.List[0] != in.List[0] {
		t.Errorf("yaml decode = %+v", fromYAML)
	}
}
