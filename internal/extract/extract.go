package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Intent values recognized from caller vocabulary.
const (
	IntentOrder   = "order"
	IntentInquiry = "inquiry"
)

// Fields holds the slots collected from a caller over one call.
// Name, Contact and Intent are overwritten by the most recent confident
// match; Items accumulates for the lifetime of the call.
type Fields struct {
	Name    string   `json:"name,omitempty"`
	Contact string   `json:"contact,omitempty"`
	Intent  string   `json:"intent,omitempty"`
	Items   []string `json:"items,omitempty"`
}

var (
	// Self-introduction followed by a capitalized word.
	nameRe = regexp.MustCompile(`\b(?:[Ii] am|[Ii]'m|[Nn]ame is)\s+([A-Z][a-z]+)\b`)
	// 8+ digits, optional leading +, interior dash/space separators.
	contactRe = regexp.MustCompile(`(\+?\d[\d\-\s]{7,}\d)`)
	// "<quantity> x <item text>".
	itemRe = regexp.MustCompile(`\b(\d+)\s*x\s*([A-Za-z0-9\s]+)`)
)

// Update returns the fields after applying one utterance. The input
// fields are not modified; no match for a category leaves that slot
// unchanged.
func Update(fields Fields, utterance string) Fields {
	if utterance == "" {
		return fields
	}

	out := fields
	out.Items = append([]string(nil), fields.Items...)

	if m := nameRe.FindStringSubmatch(utterance); m != nil {
		out.Name = m[1]
	}
	if m := contactRe.FindStringSubmatch(utterance); m != nil {
		out.Contact = m[1]
	}

	lower := strings.ToLower(utterance)
	if strings.Contains(lower, "order") || strings.Contains(lower, "buy") {
		out.Intent = IntentOrder
	}
	if strings.Contains(lower, "inquiry") || strings.Contains(lower, "question") {
		out.Intent = IntentInquiry
	}

	if m := itemRe.FindStringSubmatch(utterance); m != nil {
		out.Items = append(out.Items, fmt.Sprintf("%sx %s", m[1], strings.TrimSpace(m[2])))
	}

	return out
}

// Summary renders the collected fields for inclusion in a prompt,
// with "?" marking slots not yet filled.
func (f Fields) Summary() string {
	orDefault := func(s string) string {
		if s == "" {
			return "?"
		}
		return s
	}
	items := "?"
	if len(f.Items) > 0 {
		items = strings.Join(f.Items, ";")
	}
	return fmt.Sprintf("name=%s, intent=%s, items=%s, contact=%s",
		orDefault(f.Name), orDefault(f.Intent), items, orDefault(f.Contact))
}
