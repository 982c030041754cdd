package evolution

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5511999990000", "5511999990000"},
		{"11999990000", "5511999990000"},
		{"+55 (11) 99999-0000", "5511999990000"},
		{"(11) 99999-0000", "5511999990000"},
		{"", ""},
		{"abc", ""},
	}
	for _, tc := range cases {
		if got := NormalizePhone(tc.in); got != tc.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestJIDToPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"5511999990000@s.whatsapp.net", "5511999990000"},
		{"5511999990000", "5511999990000"},
		{"@s.whatsapp.net", ""},
	}
	for _, tc := range cases {
		if got := JIDToPhone(tc.in); got != tc.want {
			t.Errorf("JIDToPhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
