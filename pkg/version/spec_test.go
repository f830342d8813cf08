package version

import "testing"

func TestSatisfies(t *testing.T) {
	specs := []Spec{{">=", "1.2"}, {"<", "2"}, {"!=", "1.5"}}
	tests := []struct {
		v    string
		want bool
	}{
		{"1.2", true},
		{"1.9.9", true},
		{"1.5", false},
		{"2.0", false},
		{"1.1", false},
		{"bogus", false},
	}
	for _, tt := range tests {
		if got := Satisfies(tt.v, specs); got != tt.want {
			t.Errorf("Satisfies(%q) = %v, want %v", tt.v, got, tt.want)
		}
	}
	if !Satisfies("0.1", nil) {
		t.Error("empty spec list should accept any version")
	}
}

func TestAllowsPrerelease(t *testing.T) {
	if AllowsPrerelease([]Spec{{">=", "1.0"}}) {
		t.Error(">=1.0 should not allow prereleases")
	}
	if !AllowsPrerelease([]Spec{{">=", "1.0b1"}}) {
		t.Error(">=1.0b1 should allow prereleases")
	}
	if AllowsPrerelease([]Spec{{"!=", "1.0b1"}}) {
		t.Error("an exclusion should not opt into prereleases")
	}
}

func TestSplitSpec(t *testing.T) {
	tests := []struct {
		in   string
		want Spec
		ok   bool
	}{
		{">=1.0", Spec{">=", "1.0"}, true},
		{"== 1.0.1", Spec{"==", "1.0.1"}, true},
		{"<2", Spec{"<", "2"}, true},
		{"~=0.3", Spec{"~=", "0.3"}, true},
		{"1.0", Spec{}, false},
	}
	for _, tt := range tests {
		got, ok := SplitSpec(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("SplitSpec(%q) = %+v, %v; want %+v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if s := (Spec{"<=", "3"}).String(); s != "<=3" {
		t.Errorf("String() = %q", s)
	}
}
