// Package rules holds the editable qualification vocabulary: the title,
// industry, and organization lists the pre-filter and local classifier match
// against, and the authority-statement menu the generator draws from.
package rules

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// RuleSet is the complete qualification vocabulary. Matching is always
// case-insensitive substring matching against the lowercased input.
type RuleSet struct {
	// Version identifies the vocabulary revision in logs and reports.
	Version string `yaml:"version"`

	// AllowTitles qualify on authority (strict list).
	AllowTitles []string `yaml:"allow_titles"`

	// DenyTitles reject on authority regardless of anything else.
	DenyTitles []string `yaml:"deny_titles"`

	// AllowIndustries qualify on industry (lenient list).
	AllowIndustries []string `yaml:"allow_industries"`

	// DenyIndustries reject on industry.
	DenyIndustries []string `yaml:"deny_industries"`

	// DenyOrganizations hard-reject regardless of the person's role.
	DenyOrganizations []string `yaml:"deny_organizations"`

	// PreFilterTokens reject a candidate snippet before enrichment.
	PreFilterTokens []string `yaml:"prefilter_tokens"`

	// NonEnglishRoleTokens are known non-English job words that mark a
	// profile as outside the campaign's language.
	NonEnglishRoleTokens []string `yaml:"non_english_role_tokens"`

	// AuthorityStatements maps an industry key to its fixed two-line
	// authority statement. The generator may only pick from this menu.
	AuthorityStatements map[string]string `yaml:"authority_statements"`
}

// Default returns the compiled-in vocabulary.
func Default() *RuleSet {
	return &RuleSet{
		Version: "2026-02",
		AllowTitles: []string{
			"ceo", "founder", "co-founder", "managing director", "owner",
			"partner", "president", "vp", "vice president",
			"cto", "cfo", "coo", "cmo", "chief",
		},
		DenyTitles: []string{
			"intern", "student", "junior", "associate", "assistant",
			"trainee", "apprentice", "driver", "technician", "cashier",
		},
		AllowIndustries: []string{
			"software", "saas", "technology", "tech", "agency",
			"marketing", "consulting", "coaching", "professional services",
		},
		DenyIndustries: []string{
			"banking", "financial services", "insurance", "retail",
		},
		DenyOrganizations: []string{
			"santander", "getnet", "jpmorgan", "wells fargo",
			"bank of america", "citi", "hsbc",
		},
		PreFilterTokens: []string{
			"intern", "student", "estagiário", "retired",
			"open to work", "seeking opportunities", "unemployed",
		},
		NonEnglishRoleTokens: []string{
			"diretor", "diretora", "gerente", "vendedor", "analista",
			"assessor", "coordenador", "geschäftsführer", "directeur",
			"directora", "ingeniero", "abogado",
		},
		AuthorityStatements: map[string]string{
			"podcasting": "Podcasting is powerful\nGreat way to build trust at scale with your ideal audience.",
			"ecommerce":  "Ecom is a tough nut to crack\nOften comes down to having a brand/offer that's truly different.",
			"crm":        "A streamlined CRM is so valuable\nWithout proper tracking you're leaving revenue on the table.",
			"outbound":   "Outbound is a tough nut to crack\nReally comes down to precise targeting/personalisation to book clients at a high level.",
			"analytics":  "Analytics are so valuable\nGotta act on revenue leaks and double down on what works.",
			"va":         "VA placement is so valuable\nHigher margins and faster scaling for companies that use them right.",
			"branding":   "Strong branding is so powerful\nOften comes down to having a brand/offer that's truly different.",
			"recruiting": "Executive search is so powerful\nSuch a strong lever to pull.",
			"leadership": "Leadership development is so powerful\nSuch a strong lever to pull.",
			"security":   "Cybersecurity is valuable\nSo downtime saved alone makes it a no-brainer.",
		},
	}
}

// Load reads a RuleSet from a YAML file. Fields left empty in the file fall
// back to the compiled-in defaults, so an override file only needs to name
// the lists it changes.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rules: read %s", path)
	}

	var override RuleSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, eris.Wrapf(err, "rules: parse %s", path)
	}

	rs := Default()
	if override.Version != "" {
		rs.Version = override.Version
	}
	if len(override.AllowTitles) > 0 {
		rs.AllowTitles = override.AllowTitles
	}
	if len(override.DenyTitles) > 0 {
		rs.DenyTitles = override.DenyTitles
	}
	if len(override.AllowIndustries) > 0 {
		rs.AllowIndustries = override.AllowIndustries
	}
	if len(override.DenyIndustries) > 0 {
		rs.DenyIndustries = override.DenyIndustries
	}
	if len(override.DenyOrganizations) > 0 {
		rs.DenyOrganizations = override.DenyOrganizations
	}
	if len(override.PreFilterTokens) > 0 {
		rs.PreFilterTokens = override.PreFilterTokens
	}
	if len(override.NonEnglishRoleTokens) > 0 {
		rs.NonEnglishRoleTokens = override.NonEnglishRoleTokens
	}
	if len(override.AuthorityStatements) > 0 {
		rs.AuthorityStatements = override.AuthorityStatements
	}
	return rs, nil
}

// ContainsAny reports whether the lowercased haystack contains any of the
// tokens. Empty tokens never match.
func ContainsAny(haystack string, tokens []string) (string, bool) {
	h := strings.ToLower(haystack)
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(h, strings.ToLower(tok)) {
			return tok, true
		}
	}
	return "", false
}

// AuthorityStatement returns the fixed statement for a key, falling back to
// the outbound statement when the key is unknown. The second return reports
// whether the key was an exact menu hit.
func (r *RuleSet) AuthorityStatement(key string) (string, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if s, ok := r.AuthorityStatements[k]; ok {
		return s, true
	}
	return r.AuthorityStatements["outbound"], false
}

// AuthorityKeys returns the menu keys, for prompt construction.
func (r *RuleSet) AuthorityKeys() []string {
	keys := make([]string, 0, len(r.AuthorityStatements))
	for k := range r.AuthorityStatements {
		keys = append(keys, k)
	}
	return keys
}
