package triage

import "strings"

// Category is the closed set of routing categories a message can land in.
type Category uint8

const (
	Other Category = iota
	Urgent
	Important
	Newsletter
	Promotional
	OTPReceipt
)

var categoryNames = [...]string{
	Other:       "OTHER",
	Urgent:      "URGENT",
	Important:   "IMPORTANT",
	Newsletter:  "NEWSLETTER",
	Promotional: "PROMOTIONAL",
	OTPReceipt:  "OTP_RECEIPT",
}

// Categories lists every category in declaration order.
func Categories() []Category {
	return []Category{Other, Urgent, Important, Newsletter, Promotional, OTPReceipt}
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return categoryNames[Other]
}

// ParseCategory accepts the upper-case names produced by String, case-insensitively.
func ParseCategory(name string) (Category, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), true
		}
	}
	return Other, false
}

// Result is the outcome of classifying one message.
type Result struct {
	Category      Category
	Action        string
	Justification string
}
