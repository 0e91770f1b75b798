package pipeline

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/outreach-cli/internal/model"
)

var mirrorHeader = []string{
	"profile_url", "first_name", "last_name", "company", "title", "city",
	"service", "method", "authority_key", "avg_score", "repaired", "message",
}

// WriteMirror writes the committed lead set to an XLSX file, one row per
// lead, for the humans who audit what actually shipped.
func WriteMirror(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("committed")
	if err != nil {
		return eris.Wrap(err, "mirror: add sheet")
	}

	row := sheet.AddRow()
	for _, h := range mirrorHeader {
		row.AddCell().SetString(h)
	}

	for _, lead := range leads {
		row := sheet.AddRow()
		cells := []string{
			lead.Ref.URL,
			lead.Profile.FirstName,
			lead.Profile.LastName,
			lead.Profile.CompanyName,
			lead.Profile.Title,
			lead.Message.Slots.City,
			lead.Message.Slots.Service,
			lead.Message.Slots.Method,
			lead.Message.Slots.AuthorityKey,
			strconv.FormatFloat(lead.Score.AvgScore, 'f', 2, 64),
			strconv.FormatBool(lead.Message.Version > 1),
			lead.Message.Body,
		}
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "mirror: save %s", path)
	}
	return nil
}
