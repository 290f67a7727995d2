package display

import "testing"

func TestOutcome(t *testing.T) {
	cases := []struct {
		code, want string
	}{
		{"not_created", "Not filed"},
		{"created", "Filed"},
		{"creation_failed", "Rejected by tracker"},
		{"resolution_failed", "Lookup failed"},
		{"unexpected_error", "Unexpected error"},
		{"unknown", "unknown"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Outcome(tc.code); got != tc.want {
			t.Errorf("Outcome(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestOutcomeWithCode(t *testing.T) {
	if got := OutcomeWithCode("created"); got != "Filed (created)" {
		t.Errorf("got %q", got)
	}
	if got := OutcomeWithCode("unknown"); got != "unknown" {
		t.Errorf("got %q", got)
	}
}

func TestVerdict(t *testing.T) {
	for code, want := range map[string]string{"ok": "OK", "warning": "Warning", "error": "Error", "fatal": "fatal"} {
		if got := Verdict(code); got != want {
			t.Errorf("Verdict(%q) = %q, want %q", code, got, want)
		}
	}
}
