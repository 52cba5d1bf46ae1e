package notionsync

import (
	"strconv"
	"time"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the ledger mirror database.
const (
	PropEntryID     = "Entry ID"
	PropDate        = "Date"
	PropCategory    = "Category"
	PropAmount      = "Amount"
	PropStatus      = "Status"
	PropLabel       = "Label"
	PropDescription = "Description"
	PropCreatedBy   = "Created By"
)

// LedgerEntryToProperties renders e as a Notion page. creator is the
// display name of e.CreatedBy and may be empty.
func LedgerEntryToProperties(e *domain.LedgerEntry, creator string) notionapi.Properties {
	date := notionapi.Date(e.EntryDate.In(time.UTC))
	props := notionapi.Properties{
		PropEntryID: notionapi.TitleProperty{
			Title: []notionapi.RichText{text(strconv.FormatInt(e.ID, 10))},
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(e.Category)},
		},
		PropAmount: notionapi.NumberProperty{
			Number: e.Amount.InexactFloat64(),
		},
		PropStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(e.Status)},
		},
		// Always sent so that clearing a field in the ledger clears it here.
		PropLabel:       richText(e.Label),
		PropDescription: richText(e.Description),
	}
	if creator != "" {
		props[PropCreatedBy] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{text(creator)},
		}
	}
	return props
}

func text(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

func richText(s *string) notionapi.RichTextProperty {
	if s == nil || *s == "" {
		return notionapi.RichTextProperty{RichText: []notionapi.RichText{}}
	}
	return notionapi.RichTextProperty{RichText: []notionapi.RichText{text(*s)}}
}

// entryIDFromPage reads the "Entry ID" title. ok is false when the page has
// no parseable ID.
func entryIDFromPage(page notionapi.Page) (id int64, ok bool) {
	var title []notionapi.RichText
	switch p := page.Properties[PropEntryID].(type) {
	case *notionapi.TitleProperty:
		title = p.Title
	case notionapi.TitleProperty:
		title = p.Title
	}
	if len(title) == 0 {
		return 0, false
	}
	raw := title[0].PlainText
	if raw == "" && title[0].Text != nil {
		raw = title[0].Text.Content
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
