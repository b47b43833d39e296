package triage

import (
	"regexp"
	"strings"

	"mailbuddy/internal/model"
)

var (
	urgentKeywords = []string{
		"urgent", "asap", "immediately", "critical", "emergency",
		"important", "deadline", "action required", "time sensitive",
	}
	newsletterKeywords = []string{
		"unsubscribe", "newsletter", "weekly digest", "subscription",
		"update from", "mailing list", "email preferences",
	}
	promotionalKeywords = []string{
		"sale", "discount", "offer", "deal", "promotion", "coupon",
		"free shipping", "limited time", "% off", "buy now", "shop now",
	}
	receiptKeywords = []string{
		"receipt", "order confirmation", "invoice", "payment",
		"transaction", "purchase", "your order", "order number",
		"tracking number", "shipped", "delivery",
	}

	// Bare OTP is matched as a word so that "otp" inside other words is ignored.
	otpPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4,6}\b`),
		regexp.MustCompile(`(?i)verification code`),
		regexp.MustCompile(`(?i)one-time password`),
		regexp.MustCompile(`(?i)\botp\b`),
		regexp.MustCompile(`(?i)security code`),
	}
)

// Classify runs the ordered rule cascade over subject and body; the first
// matching rule decides. It performs no I/O.
func Classify(msg model.Message, known ContactSet) Result {
	text := msg.Subject + " " + msg.Body

	if matchesAny(text, otpPatterns) {
		return Result{
			Category:      OTPReceipt,
			Action:        "Move to Receipts",
			Justification: "Contains OTP or verification code",
		}
	}
	lower := strings.ToLower(text)
	if containsAny(lower, receiptKeywords) {
		return Result{
			Category:      OTPReceipt,
			Action:        "Move to Receipts",
			Justification: "Appears to be a receipt or order confirmation",
		}
	}

	fromKnown := known.IsKnown(msg.Sender)
	urgent := containsAny(lower, urgentKeywords)
	switch {
	case fromKnown && urgent:
		return Result{
			Category:      Urgent,
			Action:        "Move to Urgent",
			Justification: "From known contact with urgent keywords",
		}
	case urgent:
		return Result{
			Category:      Important,
			Action:        "Move to Important",
			Justification: "Contains urgent keywords",
		}
	case fromKnown:
		return Result{
			Category:      Important,
			Action:        "Move to Important",
			Justification: "From known contact",
		}
	}

	if containsAny(lower, newsletterKeywords) {
		return Result{
			Category:      Newsletter,
			Action:        "Move to Newsletters",
			Justification: "Appears to be a newsletter or subscription",
		}
	}
	if containsAny(lower, promotionalKeywords) {
		return Result{
			Category:      Promotional,
			Action:        "Move to Promotions",
			Justification: "Contains promotional keywords",
		}
	}

	return Result{
		Category:      Other,
		Action:        "Move to Archive",
		Justification: "General email, no specific category matched",
	}
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
