package recipients

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	in := `name,company,city
Alice,Acme,Berlin
Bob,Globex,Lisbon
`
	recs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d recipients, want 2", len(recs))
	}
	if recs[0].Name != "Alice" || recs[1].Name != "Bob" {
		t.Errorf("names = %q, %q", recs[0].Name, recs[1].Name)
	}
	if len(recs[0].Fields) != 2 || recs[0].Fields[0] != "Acme" || recs[0].Fields[1] != "Berlin" {
		t.Errorf("fields = %v", recs[0].Fields)
	}
}

func TestParseNameColumnAnywhere(t *testing.T) {
	in := `company,Name
Acme,Alice
`
	recs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if recs[0].Name != "Alice" || recs[0].Fields[0] != "Acme" {
		t.Errorf("got %+v", recs[0])
	}
}

func TestParseSkipsBlankNames(t *testing.T) {
	in := `name
Alice


Bob
`
	recs, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d recipients, want 2", len(recs))
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Error("empty input must fail")
	}
	if _, err := Parse(strings.NewReader("company\nAcme\n")); err == nil {
		t.Error("missing name column must fail")
	}
	if _, err := Parse(strings.NewReader("name\n\n")); err == nil {
		t.Error("header-only input must fail")
	}
}
