package triage

import "testing"

func TestCategoryStrings(t *testing.T) {
	cases := map[Category]string{
		Other:       "OTHER",
		Urgent:      "URGENT",
		Important:   "IMPORTANT",
		Newsletter:  "NEWSLETTER",
		Promotional: "PROMOTIONAL",
		OTPReceipt:  "OTP_RECEIPT",
		Category(42): "OTHER",
	}
	for c, want := range cases {
		if got := c.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory(" otp_receipt ")
	if !ok || c != OTPReceipt {
		t.Fatalf("expected OTP_RECEIPT, got %v %v", c, ok)
	}
	if _, ok := ParseCategory("UNKNOWN"); ok {
		t.Fatalf("expected UNKNOWN to be rejected")
	}
}

func TestSenderAddress(t *testing.T) {
	cases := map[string]string{
		"Boss <BOSS@Company.com>": "boss@company.com",
		"plain@example.com":       "plain@example.com",
		"":                        "",
	}
	for in, want := range cases {
		if got := SenderAddress(in); got != want {
			t.Fatalf("SenderAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContactSetIgnoresBlankEntries(t *testing.T) {
	set := NewContactSet(" Friend@Example.com ", "")
	if len(set) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(set))
	}
	if !set.IsKnown("Friend <friend@example.com>") {
		t.Fatalf("expected friend to be known")
	}
	if set.IsKnown("") {
		t.Fatalf("empty sender must not be known")
	}
}
