package notionsync

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/money-manager/internal/infra/bigquery"
)

// MockLedgerQuerier is a mock implementation of LedgerQuerier.
type MockLedgerQuerier struct {
	Rows []*bigquery.LedgerRow
}

func (m *MockLedgerQuerier) QueryLedger(ctx context.Context) ([]*bigquery.LedgerRow, error) {
	return m.Rows, nil
}

// MockNotion records page operations.
type MockNotion struct {
	Pages   []notionapi.Page
	Created []notionapi.Properties
	Deleted []string
}

func (m *MockNotion) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.Created = append(m.Created, properties)
	return &notionapi.Page{ID: notionapi.ObjectID("new-page")}, nil
}

func (m *MockNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{Results: m.Pages, HasMore: false}, nil
}

func (m *MockNotion) DeletePage(ctx context.Context, pageID string) error {
	m.Deleted = append(m.Deleted, pageID)
	return nil
}

func pageWithRowID(pageID, rowID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			"Row ID": &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: rowID}},
			},
		},
	}
}

func ledgerRow(rowID, description string) *bigquery.LedgerRow {
	return &bigquery.LedgerRow{
		RowID:           rowID,
		PostDate:        civil.Date{Year: 2024, Month: 2, Day: 1},
		TransactionDate: civil.Date{Year: 2024, Month: 1, Day: 15},
		Account:         "Checking",
		Amount:          decimal.RequireFromString("50.00").Rat(),
		Description:     description,
		Flow:            "Income",
	}
}

func TestSyncLedger(t *testing.T) {
	repo := &MockLedgerQuerier{Rows: []*bigquery.LedgerRow{
		ledgerRow("row-1", "KEPT"),
		ledgerRow("row-2", "NEW"),
	}}
	notion := &MockNotion{Pages: []notionapi.Page{
		pageWithRowID("page-1", "row-1"),
		pageWithRowID("page-stale", "row-gone"),
	}}

	if err := SyncLedger(context.Background(), repo, notion, "db-1", false); err != nil {
		t.Fatalf("SyncLedger: %v", err)
	}

	// row-1 exists and is skipped; row-2 is created; row-gone is archived.
	if len(notion.Created) != 1 {
		t.Fatalf("created %d pages, want 1", len(notion.Created))
	}
	if len(notion.Deleted) != 1 || notion.Deleted[0] != "page-stale" {
		t.Errorf("deleted = %v", notion.Deleted)
	}

	props := notion.Created[0]
	title, ok := props["Description"].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "NEW" {
		t.Errorf("created page description = %+v", props["Description"])
	}
	rowID, ok := props["Row ID"].(notionapi.RichTextProperty)
	if !ok || rowID.RichText[0].Text.Content != "row-2" {
		t.Errorf("created page row id = %+v", props["Row ID"])
	}
}

func TestSyncLedger_DryRunTouchesNothing(t *testing.T) {
	repo := &MockLedgerQuerier{Rows: []*bigquery.LedgerRow{ledgerRow("row-1", "NEW")}}
	notion := &MockNotion{Pages: []notionapi.Page{pageWithRowID("page-stale", "row-gone")}}

	if err := SyncLedger(context.Background(), repo, notion, "db-1", true); err != nil {
		t.Fatalf("SyncLedger: %v", err)
	}
	if len(notion.Created) != 0 || len(notion.Deleted) != 0 {
		t.Errorf("dry run mutated Notion: created=%d deleted=%d", len(notion.Created), len(notion.Deleted))
	}
}

func TestLedgerRowToNotionProperties_OptionalFields(t *testing.T) {
	row := ledgerRow("row-1", "X")
	props := LedgerRowToNotionProperties(row)

	if _, ok := props["Category"]; ok {
		t.Error("null category must be omitted")
	}
	if _, ok := props["Type"]; ok {
		t.Error("null type must be omitted")
	}

	amount, ok := props["Amount"].(notionapi.NumberProperty)
	if !ok || amount.Number != 50 {
		t.Errorf("amount property = %+v", props["Amount"])
	}
}
