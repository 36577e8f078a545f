package operation

import "testing"

func opNames(ops []Operation) []string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Base().Name
	}
	return names
}

// TestStatic verifies lookup by site ID.
func TestStatic(t *testing.T) {
	read := &Read{Common: Common{Name: "read", CacheNames: []string{"books"}}}
	src := NewStatic(map[string][]Operation{
		"svc.Find": {read},
	})

	ops := src.Operations(Site{ID: "svc.Find", Name: "Find"})
	if len(ops) != 1 || ops[0] != Operation(read) {
		t.Errorf("Operations = %v, want the registered read", ops)
	}

	if ops := src.Operations(Site{ID: "svc.Other"}); ops != nil {
		t.Errorf("Operations for unknown site = %v, want nil", ops)
	}
}

// TestComposite verifies concatenation in registration order.
func TestComposite(t *testing.T) {
	a := &Read{Common: Common{Name: "a"}}
	b := &Write{Common: Common{Name: "b"}}
	c := &Invalidate{Common: Common{Name: "c"}}

	src := NewComposite(
		NewStatic(map[string][]Operation{"s": {a}}),
		NewStatic(map[string][]Operation{"s": {b, c}}),
	)

	got := opNames(src.Operations(Site{ID: "s"}))
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Operations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Operations[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestNameMatch_Patterns tests the supported pattern forms.
func TestNameMatch_Patterns(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		call    string
		match   bool
	}{
		{"exact match", "Find", "Find", true},
		{"exact mismatch", "Find", "FindAll", false},
		{"prefix", "Find*", "FindAll", true},
		{"prefix mismatch", "Find*", "Get", false},
		{"suffix", "*ById", "FindById", true},
		{"suffix mismatch", "*ById", "FindByName", false},
		{"contains", "*By*", "FindByName", true},
		{"contains mismatch", "*By*", "GetAll", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewNameMatch().Add(tt.pattern, &Read{Common: Common{Name: "op"}})
			ops := src.Operations(Site{ID: "s", Name: tt.call})
			if got := len(ops) == 1; got != tt.match {
				t.Errorf("pattern %q vs %q: matched=%v, want %v", tt.pattern, tt.call, got, tt.match)
			}
		})
	}
}

// TestNameMatch_LongestPatternWins verifies ties break toward the most
// specific (longest) pattern, with exact matches winning outright.
func TestNameMatch_LongestPatternWins(t *testing.T) {
	src := NewNameMatch().
		Add("Find*", &Read{Common: Common{Name: "broad"}}).
		Add("FindBy*", &Read{Common: Common{Name: "narrow"}}).
		Add("FindById", &Read{Common: Common{Name: "exact"}})

	tests := []struct {
		call string
		want string
	}{
		{"FindById", "exact"},
		{"FindByName", "narrow"},
		{"FindAll", "broad"},
	}

	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			ops := src.Operations(Site{Name: tt.call})
			if len(ops) != 1 {
				t.Fatalf("Operations(%q) = %v, want one match", tt.call, ops)
			}
			if got := ops[0].Base().Name; got != tt.want {
				t.Errorf("Operations(%q) matched %q, want %q", tt.call, got, tt.want)
			}
		})
	}
}

// TestNameMatch_NoMatch verifies unmatched names yield nothing.
func TestNameMatch_NoMatch(t *testing.T) {
	src := NewNameMatch().Add("Find*", &Read{Common: Common{Name: "op"}})
	if ops := src.Operations(Site{Name: "Delete"}); ops != nil {
		t.Errorf("Operations(Delete) = %v, want nil", ops)
	}
}
