package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/rules"
)

func TestCasualCompanyName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Immersion Data Solutions, LTD", "IDS"},
		{"The NS Marketing Agency", "TNMA"},
		{"Coca Cola LTD", "Coca Cola"},
		{"Megafluence, Inc.", "Megafluence"},
		{"Acme", "Acme"},
		{"Acme Corp", "Acme"},
		{"Acme Corporation", "Acme"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CasualCompanyName(tc.in), tc.in)
	}
}

func TestCityFromLocation(t *testing.T) {
	assert.Equal(t, "San Francisco", CityFromLocation("San Francisco, California, United States"))
	assert.Equal(t, "Glasgow", CityFromLocation("Glasgow"))
	assert.Equal(t, "", CityFromLocation(""))
}

func TestAssembleMessage(t *testing.T) {
	rs := rules.Default()
	body, slots := AssembleMessage(rs, model.MessageSlots{
		FirstName:    "Jane",
		Company:      "NS Marketing",
		Service:      "paid ads",
		Method:       "Google + Meta",
		AuthorityKey: "outbound",
		City:         "Austin",
	})

	lines := strings.Split(body, "\n\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Hey Jane", lines[0])
	assert.Equal(t, "NS Marketing looks interesting", lines[1])
	assert.Equal(t, "You guys do paid ads right? Do that w Google + Meta? Or what", lines[2])
	assert.Contains(t, lines[3], "Outbound is a tough nut to crack")
	assert.Contains(t, lines[4], "See you're in Austin.")
	assert.Contains(t, lines[4], "I'm in Glasgow, Scotland")
	assert.Equal(t, "outbound", slots.AuthorityKey)
}

func TestAssembleMessage_UnknownAuthorityKeyFallsBack(t *testing.T) {
	rs := rules.Default()
	body, slots := AssembleMessage(rs, model.MessageSlots{
		FirstName:    "Jo",
		Company:      "Acme",
		Service:      "consulting",
		Method:       "LinkedIn + email",
		AuthorityKey: "underwater basket weaving",
		City:         "Leeds",
	})

	assert.Equal(t, "outbound", slots.AuthorityKey)
	assert.Contains(t, body, "Outbound is a tough nut to crack")
}

func TestVerifyTemplateFields(t *testing.T) {
	declared := []string{TemplateFieldMessage}

	err := VerifyTemplateFields(map[string]string{TemplateFieldMessage: "Hey Jane"}, declared)
	assert.NoError(t, err)

	err = VerifyTemplateFields(map[string]string{}, declared)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TemplateFieldMessage)

	err = VerifyTemplateFields(map[string]string{TemplateFieldMessage: "   "}, declared)
	assert.Error(t, err)
}
