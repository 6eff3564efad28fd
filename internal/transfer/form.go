// Package transfer holds the transfer form and the controller that submits
// it to a wallet provider.
package transfer

import (
	"strings"
	"unicode"
)

// Required-field messages shown under each input.
const (
	MsgRecipientRequired = "Please enter your recipient address"
	MsgAmountRequired    = "Please enter your amount"
)

// Form is the user's input for one transfer.
type Form struct {
	Recipient string
	Amount    string
}

// FieldErrors holds the inline error for each field; empty means valid.
type FieldErrors struct {
	Recipient string
	Amount    string
}

// Empty reports whether no field has an error.
func (e FieldErrors) Empty() bool {
	return e.Recipient == "" && e.Amount == ""
}

// Sanitize trims s and collapses every internal whitespace run to one space.
// It is applied on each change of either field.
func Sanitize(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// SanitizeAt sanitizes s and maps the rune offset pos in s to the matching
// offset in the result, so an edit in the middle of a field keeps its place.
func SanitizeAt(s string, pos int) (string, int) {
	r := []rune(s)
	pos = max(0, min(pos, len(r)))
	head := Sanitize(string(r[:pos]))
	n := len([]rune(head))
	// a whitespace run just before the cursor survives as one space when
	// text sits on both sides of it
	if pos > 0 && isSpace(r[pos-1]) && head != "" && Sanitize(string(r[pos:])) != "" {
		n++
	}
	return Sanitize(s), n
}

// isSpace matches the whitespace class of browser form input: the byte
// order mark counts, NEL does not.
func isSpace(r rune) bool {
	switch r {
	case '\uFEFF':
		return true
	case '\u0085':
		return false
	}
	return unicode.IsSpace(r)
}

// Sanitized returns f with both fields sanitized.
func (f Form) Sanitized() Form {
	return Form{Recipient: Sanitize(f.Recipient), Amount: Sanitize(f.Amount)}
}

// Validate applies the required rules.
func (f Form) Validate() FieldErrors {
	var errs FieldErrors
	if f.Recipient == "" {
		errs.Recipient = MsgRecipientRequired
	}
	if f.Amount == "" {
		errs.Amount = MsgAmountRequired
	}
	return errs
}
