package services

import (
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/finsightlabs/finsight-go/models"
)

func TestMeltKPIDocumentRoundTrip(t *testing.T) {
	doc := bson.D{
		{Key: "_id", Value: "abc"},
		{Key: "totalRevenue", Value: 100},
		{Key: "totalExpenses", Value: 40},
		{Key: "totalProfit", Value: 60},
	}
	frames := meltKPIDocument(doc)

	totals := frames[models.DatasetKPITotals]
	if totals.Len() != 3 {
		t.Fatalf("kpi_totals rows = %d, want 3", totals.Len())
	}
	want := map[string]interface{}{
		"totalRevenue":  100,
		"totalExpenses": 40,
		"totalProfit":   60,
	}
	for _, row := range totals.Rows {
		metric := row["metric"].(string)
		if row["value"] != want[metric] {
			t.Errorf("%s = %v, want %v", metric, row["value"], want[metric])
		}
	}

	// the other three frames are empty but keep their headers
	checks := map[models.Dataset][]string{
		models.DatasetKPIExpenses: {"category", "value"},
		models.DatasetKPIMonthly:  {"month", "revenue", "expenses", "operationalExpenses", "nonOperationalExpenses"},
		models.DatasetKPIDaily:    {"date", "revenue", "expenses"},
	}
	for dataset, columns := range checks {
		frame := frames[dataset]
		if frame.Len() != 0 {
			t.Errorf("%s rows = %d, want 0", dataset, frame.Len())
		}
		if !reflect.DeepEqual(frame.Columns, columns) {
			t.Errorf("%s columns = %v, want %v", dataset, frame.Columns, columns)
		}
	}
}

func TestMeltKPIDocumentDefaultsMissingTotals(t *testing.T) {
	frames := meltKPIDocument(bson.D{{Key: "totalRevenue", Value: 100}})
	totals := frames[models.DatasetKPITotals]
	if totals.Len() != 3 {
		t.Fatalf("rows = %d, want fixed 3", totals.Len())
	}
	for _, row := range totals.Rows {
		if row["metric"] == "totalProfit" && row["value"] != 0 {
			t.Errorf("missing totalProfit = %v, want 0", row["value"])
		}
	}
}

func TestMeltKPIDocumentExpensesByCategory(t *testing.T) {
	doc := bson.D{
		{Key: "expensesByCategory", Value: bson.D{
			{Key: "salaries", Value: 25},
			{Key: "supplies", Value: 15},
		}},
	}
	expenses := meltKPIDocument(doc)[models.DatasetKPIExpenses]
	if expenses.Len() != 2 {
		t.Fatalf("rows = %d, want 2", expenses.Len())
	}
	if expenses.Rows[0]["category"] != "salaries" || expenses.Rows[1]["category"] != "supplies" {
		t.Errorf("categories out of document order: %v", expenses.Rows)
	}
}

func TestMeltKPIDocumentDaily(t *testing.T) {
	doc := bson.D{
		{Key: "dailyData", Value: bson.A{
			bson.D{
				{Key: "date", Value: "2024-01-01"},
				{Key: "revenue", Value: "12.5"},
				{Key: "expenses", Value: "not a number"},
			},
		}},
	}
	daily := meltKPIDocument(doc)[models.DatasetKPIDaily]
	if daily.Len() != 1 {
		t.Fatalf("rows = %d, want 1", daily.Len())
	}
	row := daily.Rows[0]
	if _, ok := row["date"].(time.Time); !ok {
		t.Errorf("date = %T(%v), want time.Time", row["date"], row["date"])
	}
	if row["revenue"] != 12.5 {
		t.Errorf("revenue = %v, want coerced 12.5", row["revenue"])
	}
	if row["expenses"] != 0.0 {
		t.Errorf("expenses = %v, want invalid coerced to 0", row["expenses"])
	}
}

func TestMeltKPIDocumentMonthlyForcesStringMonth(t *testing.T) {
	doc := bson.D{
		{Key: "monthlyData", Value: bson.A{
			bson.D{{Key: "month", Value: 1}, {Key: "revenue", Value: 10}},
		}},
	}
	monthly := meltKPIDocument(doc)[models.DatasetKPIMonthly]
	if monthly.Rows[0]["month"] != "1" {
		t.Errorf("month = %v (%T), want string \"1\"", monthly.Rows[0]["month"], monthly.Rows[0]["month"])
	}
}

func TestFrameFromDocsShaping(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := []bson.D{
		{
			{Key: "_id", Value: "x1"},
			{Key: "price", Value: 100},
			{Key: "expense", Value: 40},
			{Key: "createdAt", Value: created.Format(time.RFC3339)},
		},
		{
			{Key: "_id", Value: "x2"},
			{Key: "price", Value: 80},
			{Key: "expense", Value: "oops"},
			{Key: "createdAt", Value: "not a date"},
		},
	}
	frame := frameFromDocs(docs)

	if frame.HasColumn("_id") {
		t.Error("_id column not dropped")
	}
	if got, ok := frame.Rows[0]["createdAt"].(time.Time); !ok || !got.Equal(created) {
		t.Errorf("createdAt = %v, want parsed %v", frame.Rows[0]["createdAt"], created)
	}
	if frame.Rows[1]["createdAt"] != "not a date" {
		t.Errorf("unparsable createdAt = %v, want kept as-is", frame.Rows[1]["createdAt"])
	}

	deriveMargin(frame)
	if !frame.HasColumn("margin") {
		t.Fatal("margin not derived")
	}
	if frame.Rows[0]["margin"] != 60.0 {
		t.Errorf("margin[0] = %v, want 60", frame.Rows[0]["margin"])
	}
	// non-numeric expense counts as 0
	if frame.Rows[1]["margin"] != 80.0 {
		t.Errorf("margin[1] = %v, want 80", frame.Rows[1]["margin"])
	}
}

func TestDeriveMarginRequiresBothColumns(t *testing.T) {
	frame := frameFromDocs([]bson.D{{{Key: "price", Value: 10}}})
	deriveMargin(frame)
	if frame.HasColumn("margin") {
		t.Error("margin derived without expense column")
	}
}

func TestDeriveProductCount(t *testing.T) {
	docs := []bson.D{
		{{Key: "buyer", Value: "ada"}, {Key: "productIds", Value: bson.A{"p1", "p2", "p3"}}},
		{{Key: "buyer", Value: "bob"}, {Key: "productIds", Value: "p1"}},
		{{Key: "buyer", Value: "cy"}},
	}
	frame := frameFromDocs(docs)
	deriveProductCount(frame)

	want := []interface{}{3, 0, 0}
	for i, row := range frame.Rows {
		if row["productCount"] != want[i] {
			t.Errorf("productCount[%d] = %v, want %v", i, row["productCount"], want[i])
		}
	}
}

func TestFrameFromDocsEmpty(t *testing.T) {
	frame := frameFromDocs(nil)
	if frame == nil || frame.Len() != 0 {
		t.Fatalf("empty collection should yield an empty, non-nil frame")
	}
}

func TestEmptyKPIFrames(t *testing.T) {
	frames := emptyKPIFrames()
	for _, dataset := range []models.Dataset{models.DatasetKPITotals, models.DatasetKPIExpenses, models.DatasetKPIMonthly, models.DatasetKPIDaily} {
		frame, ok := frames[dataset]
		if !ok || frame.Len() != 0 || len(frame.Columns) == 0 {
			t.Errorf("%s: want empty frame with headers, got %+v", dataset, frame)
		}
	}
}
