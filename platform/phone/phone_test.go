package phone

import "testing"

func TestNormalizeVariantsConverge(t *testing.T) {
	variants := []string{
		"(303) 555-0142",
		"303-555-0142",
		"3035550142",
		"+1 303 555 0142",
		"1.303.555.0142",
	}

	for _, v := range variants {
		if got := Normalize(v); got != "13035550142" {
			t.Fatalf("Normalize(%q) = %q, want 13035550142", v, got)
		}
	}
}

func TestNormalizeShortAndForeignNumbers(t *testing.T) {
	if got := Normalize("555-0142"); got != "5550142" {
		t.Fatalf("short number should stay digit-stripped, got %q", got)
	}
	if got := Normalize("+31 20 555 0142"); got != "31205550142" {
		t.Fatalf("11+ digit number should keep its own country code, got %q", got)
	}
	if got := Normalize(""); got != "" {
		t.Fatalf("empty input should normalize to empty, got %q", got)
	}
}

func TestSameSuffixMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"+13035550142", "(303) 555-0142", true},
		{"13035550142", "3035550142", true},
		{"3035550142", "3035550199", false},
		{"", "3035550142", false},
	}

	for _, tc := range cases {
		if got := Same(tc.a, tc.b); got != tc.want {
			t.Fatalf("Same(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestE164FallsBackToNormalizedDigits(t *testing.T) {
	if got := E164("(303) 555-0142"); got != "+13035550142" {
		t.Fatalf("E164 = %q, want +13035550142", got)
	}
	if got := E164("not a number"); got != "not a number" {
		t.Fatalf("unparseable input with no digits should pass through, got %q", got)
	}
}
