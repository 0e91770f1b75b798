package pipeline

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/rules"
)

// The five-line message skeleton. Fixed text is assembled here, never by the
// LLM, so a generation can only ever vary inside the bracketed slots.
const (
	greetingLine = "Hey %s"
	hookLine     = "%s looks interesting"
	inquiryLine  = "You guys do %s right? Do that w %s? Or what"
	locationLine = "See you're in %s. Just been to Fort Lauderdale in the US - and I mean the airport lol Have so many connections now that I need to visit for real. I'm in Glasgow, Scotland"
)

// TemplateFieldMessage is the custom field the campaign template reads the
// message body from. Every uploaded lead must carry it.
const TemplateFieldMessage = "personalized_message"

// companySuffixes are stripped before abbreviation, longest variants first.
var companySuffixes = []string{
	", Inc.", ", Inc", ", LLC", ", LTD", ", Ltd",
	" Inc.", " Inc", " LLC", " LTD", " Ltd",
	", Corp", " Corp", " Corporation",
	" PLC", " plc", " Limited",
}

// CasualCompanyName strips legal suffixes and abbreviates long names to
// initials, the way the message template expects company names to read.
// "Immersion Data Solutions, LTD" becomes "IDS"; one- and two-word names
// pass through untouched.
func CasualCompanyName(company string) string {
	if company == "" {
		return ""
	}

	for _, suffix := range companySuffixes {
		if strings.HasSuffix(company, suffix) {
			company = company[:len(company)-len(suffix)]
		}
	}
	company = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(company), ","))

	words := strings.Fields(company)
	if len(words) >= 3 {
		var b strings.Builder
		for _, w := range words {
			r := rune(w[0])
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				b.WriteString(strings.ToUpper(string(r)))
			}
		}
		if b.Len() >= 2 {
			return b.String()
		}
	}

	return company
}

// CityFromLocation extracts the city from a full location string like
// "San Francisco, California, United States".
func CityFromLocation(location string) string {
	if location == "" {
		return ""
	}
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

// AssembleMessage renders the five-line body from slot values. The authority
// statement comes from the closed menu; an unknown key falls back to the
// default entry and the returned slots record the key actually used.
func AssembleMessage(rs *rules.RuleSet, slots model.MessageSlots) (string, model.MessageSlots) {
	statement, exact := rs.AuthorityStatement(slots.AuthorityKey)
	if !exact {
		slots.AuthorityKey = "outbound"
	}

	lines := []string{
		fmt.Sprintf(greetingLine, slots.FirstName),
		fmt.Sprintf(hookLine, slots.Company),
		fmt.Sprintf(inquiryLine, slots.Service, slots.Method),
		statement,
		fmt.Sprintf(locationLine, slots.City),
	}
	return strings.Join(lines, "\n\n"), slots
}

// VerifyTemplateFields checks that every custom field the campaign template
// declares is present and non-empty on the lead payload. A lead missing a
// declared field would render a broken message and must not upload.
func VerifyTemplateFields(fields map[string]string, declared []string) error {
	for _, name := range declared {
		if strings.TrimSpace(fields[name]) == "" {
			return eris.Errorf("pipeline: missing template field %q", name)
		}
	}
	return nil
}
