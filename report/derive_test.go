package report

import "testing"

func TestHydrationML(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"600ml", 600, true},
		{": 500 ml of juice", 500, true},
		{"2 litres of water", 2000, true},
		{"1.5 liters", 1500, true},
		{"3 cups of tea", 750, true},
		{"2 glasses", 500, true},
		{"1 bottle of water", 600, true},
		{"drank well", 0, false},
		{"3 drinks", 0, false},
		{"", 0, false},
		{"water only", 0, false},
	}
	for _, tc := range cases {
		got, ok := hydrationML(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("hydrationML(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMentionsWater(t *testing.T) {
	if !mentionsWater("2 litres of Water") {
		t.Error("case-insensitive water mention missed")
	}
	if mentionsWater("2 cups of tea") {
		t.Error("false water mention")
	}
}

func TestBaselineDescriptor(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Did not return to baseline", "not_returned"},
		{"Over an hour", "over"},
		{"Within 30 minutes", "within"},
		{"Less than 10 mins", "less"},
		{"2 hours", "reported"},
	}
	for _, tc := range cases {
		if got := baselineDescriptor(tc.in); got != tc.want {
			t.Errorf("baselineDescriptor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBaselineMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"2 hours", 120, true},
		{"3 hrs", 180, true},
		{"45 minutes", 45, true},
		{"90 sec", 1.5, true},
		{"1 day", 1440, true},
		{"30", 30, true},
		{"did not return", 0, false},
	}
	for _, tc := range cases {
		got, ok := baselineMinutes(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("baselineMinutes(%q) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
