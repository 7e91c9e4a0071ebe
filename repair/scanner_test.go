package repair

import (
	"errors"
	"testing"
)

func TestScannerStep(t *testing.T) {
	input := `{"a\"}": [1]}`
	// structural bytes are the ones outside string literals, excluding quotes
	want := "{:[1]}"

	var sc scanner
	var got []byte
	for i := 0; i < len(input); i++ {
		if sc.step(input[i]) && input[i] != ' ' {
			got = append(got, input[i])
		}
	}
	if string(got) != want {
		t.Errorf("structural bytes = %q, want %q", got, want)
	}
	if sc.state != stateNormal {
		t.Errorf("expected scanner to end outside a string, got state %d", sc.state)
	}
}

func TestSpan(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end int
	}{
		{"object", `{"a":1}`, 0, 7},
		{"leading prose", `ok: {}`, 4, 6},
		{"array before object", `x [ {"a":1} ] {}`, 2, 13},
		{"object before array", `{"a":[1,2]} [3]`, 0, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := span(tt.text)
			if err != nil {
				t.Fatalf("span failed: %v", err)
			}
			if start != tt.start || end != tt.end {
				t.Errorf("span = [%d,%d), want [%d,%d)", start, end, tt.start, tt.end)
			}
		})
	}
}

func TestSpan_Errors(t *testing.T) {
	tests := []struct {
		text   string
		reason string
	}{
		{"no json here", "no opening delimiter"},
		{`{"a": "}"`, "unbalanced delimiters"},
		{`[1, 2`, "unbalanced delimiters"},
	}
	for _, tt := range tests {
		_, _, err := span(tt.text)
		var nj *NoJSONFoundError
		if !errors.As(err, &nj) {
			t.Fatalf("span(%q): expected NoJSONFoundError, got %v", tt.text, err)
		}
		if nj.Reason != tt.reason {
			t.Errorf("span(%q): reason %q, want %q", tt.text, nj.Reason, tt.reason)
		}
	}
}
