package domain

import "testing"

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain numeric", raw: "1010157", want: "1010157"},
		{name: "spreadsheet float artifact", raw: "1010157.0", want: "1010157"},
		{name: "leading zeros", raw: "0001010157", want: "1010157"},
		{name: "whitespace", raw: "  1010157  ", want: "1010157"},
		{name: "zero", raw: "000", want: "0"},
		{name: "alphanumeric upper-cased", raw: "ab-123", want: "AB-123"},
		{name: "non integral float kept", raw: "12.5", want: "12.5"},
		{name: "empty", raw: "", want: ""},
		{name: "blank", raw: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeIdentity(tt.raw); got != tt.want {
				t.Fatalf("NormalizeIdentity(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdentityNumericStringEquality(t *testing.T) {
	// A raw numeric cell and its textual form must resolve to the same key.
	pairs := [][2]string{
		{"1010157", "1010157.0"},
		{"1010157", "001010157"},
		{" 1010157", "1010157.0"},
	}
	for _, pair := range pairs {
		if NormalizeIdentity(pair[0]) != NormalizeIdentity(pair[1]) {
			t.Errorf("expected %q and %q to normalize equally, got %q and %q",
				pair[0], pair[1], NormalizeIdentity(pair[0]), NormalizeIdentity(pair[1]))
		}
	}
}
