package email

import "testing"

func TestEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"exact match", "buyer@example.com", "buyer@example.com", true},
		{"case insensitive", "Buyer@Example.COM", "buyer@example.com", true},
		{"surrounding whitespace", "  buyer@example.com ", "buyer@example.com", true},
		{"different mailbox", "buyer@example.com", "other@example.com", false},
		{"empty never matches", "", "", false},
		{"one empty", "buyer@example.com", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Fatalf("Equal(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
