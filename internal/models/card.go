package models

import "strings"

// CardInput holds the raw card fields submitted at checkout. It only lives for
// the duration of the tokenization call.
type CardInput struct {
	Number   string `validate:"required,numeric,min=12,max=19"`
	ExpMonth string `validate:"required,numeric,min=1,max=2"`
	ExpYear  string `validate:"required,numeric,len=4"`
	CVV      string `validate:"required,numeric,min=3,max=4"`
}

// Normalized strips whitespace from every field so "4012 0000 9876 5439"
// validates and transmits as digits only.
func (c CardInput) Normalized() CardInput {
	strip := func(s string) string { return strings.Join(strings.Fields(s), "") }
	return CardInput{
		Number:   strip(c.Number),
		ExpMonth: strip(c.ExpMonth),
		ExpYear:  strip(c.ExpYear),
		CVV:      strip(c.CVV),
	}
}

// Empty reports whether any field is missing.
func (c CardInput) Empty() bool {
	n := c.Normalized()
	return n.Number == "" || n.ExpMonth == "" || n.ExpYear == "" || n.CVV == ""
}

// String masks the card so it never ends up verbatim in a log line.
func (c CardInput) String() string {
	n := c.Normalized().Number
	if len(n) < 4 {
		return "card[****]"
	}
	return "card[****" + n[len(n)-4:] + "]"
}

// GoString keeps %#v from printing the raw fields.
func (c CardInput) GoString() string {
	return c.String()
}
