package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/money-manager/internal/infra/bigquery"
)

// LedgerRowToNotionProperties converts a ledger row into the property
// set of the mirror database. The Row ID property carries the
// deterministic row identity used for stale-page detection.
func LedgerRowToNotionProperties(row *bigquery.LedgerRow) notionapi.Properties {
	props := notionapi.Properties{
		"Description": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: row.Description,
					},
				},
			},
		},
		"Post Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: civilToNotionDate(row.PostDate.Year, int(row.PostDate.Month), row.PostDate.Day),
			},
		},
		"Transaction Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: civilToNotionDate(row.TransactionDate.Year, int(row.TransactionDate.Month), row.TransactionDate.Day),
			},
		},
		"Account": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: row.Account,
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: func() float64 {
				if row.Amount != nil {
					f, _ := row.Amount.Float64()
					return f
				}
				return 0
			}(),
		},
		"Flow": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: row.Flow,
			},
		},
		"Row ID": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: row.RowID,
					},
				},
			},
		},
	}

	if row.Category.Valid {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: row.Category.StringVal,
			},
		}
	}
	if row.TxnType.Valid {
		props["Type"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: row.TxnType.StringVal,
			},
		}
	}

	return props
}

func civilToNotionDate(year, month, day int) *notionapi.Date {
	d := notionapi.Date(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
	return &d
}

// extractRowID extracts the ledger row ID from a Notion page's properties.
// Returns empty string if not found.
func extractRowID(page notionapi.Page) string {
	if prop, ok := page.Properties["Row ID"]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
