package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/finsightlabs/finsight-go/models"
)

// FrameSource supplies the tabular data behind a dataset name. The Mongo
// store implements it; tests substitute a stub.
type FrameSource interface {
	FrameFor(ctx context.Context, dataset models.Dataset) (*models.Frame, error)
}

// Store is the read-only handle to the document store. It is constructed
// once at startup and shared across requests.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	queryTimeout time.Duration
}

// OpenStore connects to the document store and verifies the connection.
func OpenStore(ctx context.Context, uri, dbName string, queryTimeout time.Duration) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store ping failed: %w", err)
	}
	return &Store{
		client:       client,
		db:           client.Database(dbName),
		queryTimeout: queryTimeout,
	}, nil
}

// Close disconnects from the store.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FrameFor returns the frame for a dataset. Frames may be empty but are
// never nil; only store unavailability comes back as an error.
func (s *Store) FrameFor(ctx context.Context, dataset models.Dataset) (*models.Frame, error) {
	switch dataset {
	case models.DatasetKPITotals, models.DatasetKPIExpenses, models.DatasetKPIMonthly, models.DatasetKPIDaily:
		frames, err := s.fetchKPIFrames(ctx)
		if err != nil {
			return nil, err
		}
		return frames[dataset], nil
	case models.DatasetProducts:
		return s.fetchProducts(ctx)
	case models.DatasetTransactions:
		return s.fetchTransactions(ctx)
	default:
		// Normalization guarantees a valid dataset; guard anyway.
		return models.NewFrame(), nil
	}
}

// fetchKPIFrames loads the latest KPI document and melts it into the four
// KPI frames. No document at all yields empty frames with correct headers.
func (s *Store) fetchKPIFrames(ctx context.Context) (map[models.Dataset]*models.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var doc bson.D
	err := s.db.Collection("kpis").
		FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})).
		Decode(&doc)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		log.Printf("Failed fetching KPI doc w/ sort, falling back: %v", err)
		err = s.db.Collection("kpis").FindOne(ctx, bson.M{}).Decode(&doc)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Println("No KPI document found, returning empty frames.")
			return emptyKPIFrames(), nil
		}
		return nil, fmt.Errorf("failed to fetch KPI document: %w", err)
	}

	frames := meltKPIDocument(doc)
	for name, frame := range frames {
		log.Printf("[KPI] %s rows=%d cols=%v", name, frame.Len(), frame.Columns)
	}
	return frames, nil
}

func emptyKPIFrames() map[models.Dataset]*models.Frame {
	return map[models.Dataset]*models.Frame{
		models.DatasetKPITotals:   models.NewFrame("metric", "value"),
		models.DatasetKPIExpenses: models.NewFrame("category", "value"),
		models.DatasetKPIMonthly:  models.NewFrame("month", "revenue", "expenses", "operationalExpenses", "nonOperationalExpenses"),
		models.DatasetKPIDaily:    models.NewFrame("date", "revenue", "expenses"),
	}
}

// meltKPIDocument splits a single KPI document into four flat frames:
// totals (fixed three metrics, missing values default to 0), expenses by
// category (one row per mapping key, in document order), monthly (month
// forced to string), and daily (date parsed, revenue/expenses coerced to
// numbers with invalid values as 0).
func meltKPIDocument(doc bson.D) map[models.Dataset]*models.Frame {
	totals := models.NewFrame("metric", "value")
	for _, metric := range []string{"totalRevenue", "totalExpenses", "totalProfit"} {
		value := docLookup(doc, metric)
		if value == nil {
			value = 0
		}
		totals.Rows = append(totals.Rows, map[string]interface{}{"metric": metric, "value": value})
	}

	expenses := models.NewFrame("category", "value")
	if byCategory, ok := docLookup(doc, "expensesByCategory").(bson.D); ok {
		for _, e := range byCategory {
			expenses.Rows = append(expenses.Rows, map[string]interface{}{
				"category": e.Key,
				"value":    normalizeValue(e.Value),
			})
		}
	}

	monthly := frameFromList(docLookup(doc, "monthlyData"))
	if monthly.Len() == 0 {
		monthly = models.NewFrame("month", "revenue", "expenses", "operationalExpenses", "nonOperationalExpenses")
	} else if monthly.HasColumn("month") {
		for _, row := range monthly.Rows {
			row["month"] = fmt.Sprintf("%v", row["month"])
		}
	}

	daily := frameFromList(docLookup(doc, "dailyData"))
	if daily.Len() == 0 {
		daily = models.NewFrame("date", "revenue", "expenses")
	} else {
		if daily.HasColumn("date") {
			for _, row := range daily.Rows {
				row["date"] = parseTimestamp(row["date"])
			}
		}
		for _, col := range []string{"revenue", "expenses"} {
			if !daily.HasColumn(col) {
				continue
			}
			for _, row := range daily.Rows {
				v, ok := models.ToFloat64(row[col])
				if !ok {
					v = 0
				}
				row[col] = v
			}
		}
	}

	return map[models.Dataset]*models.Frame{
		models.DatasetKPITotals:   totals,
		models.DatasetKPIExpenses: expenses,
		models.DatasetKPIMonthly:  monthly,
		models.DatasetKPIDaily:    daily,
	}
}

func (s *Store) fetchProducts(ctx context.Context) (*models.Frame, error) {
	docs, err := s.fetchAll(ctx, "products")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	frame := frameFromDocs(docs)
	deriveMargin(frame)
	log.Printf("[Products] rows=%d cols=%v", frame.Len(), frame.Columns)
	return frame, nil
}

func (s *Store) fetchTransactions(ctx context.Context) (*models.Frame, error) {
	docs, err := s.fetchAll(ctx, "transactions")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	frame := frameFromDocs(docs)
	deriveProductCount(frame)
	log.Printf("[Transactions] rows=%d cols=%v", frame.Len(), frame.Columns)
	return frame, nil
}

func (s *Store) fetchAll(ctx context.Context, collection string) ([]bson.D, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// frameFromDocs shapes raw documents into a frame: the internal _id field is
// dropped, columns keep document field order, and any column whose name
// contains "date"/"created"/"updated" is parsed to a timestamp best-effort
// (unparsable values are kept as-is).
func frameFromDocs(docs []bson.D) *models.Frame {
	frame := models.NewFrame()
	for _, doc := range docs {
		row := make(map[string]interface{}, len(doc))
		for _, e := range doc {
			if e.Key == "_id" {
				continue
			}
			if !frame.HasColumn(e.Key) {
				frame.Columns = append(frame.Columns, e.Key)
			}
			row[e.Key] = normalizeValue(e.Value)
		}
		frame.Rows = append(frame.Rows, row)
	}

	for _, col := range frame.Columns {
		lower := strings.ToLower(col)
		if !strings.Contains(lower, "date") && !strings.Contains(lower, "created") && !strings.Contains(lower, "updated") {
			continue
		}
		for _, row := range frame.Rows {
			row[col] = parseTimestamp(row[col])
		}
	}
	return frame
}

// deriveMargin adds margin = price - expense when both inputs are present.
// Non-numeric values count as 0.
func deriveMargin(f *models.Frame) {
	if f.Len() == 0 || !f.HasColumn("price") || !f.HasColumn("expense") {
		return
	}
	values := make([]interface{}, f.Len())
	for i, row := range f.Rows {
		price, ok := models.ToFloat64(row["price"])
		if !ok {
			price = 0
		}
		expense, ok := models.ToFloat64(row["expense"])
		if !ok {
			expense = 0
		}
		values[i] = price - expense
	}
	f.AddColumn("margin", values)
}

// deriveProductCount adds productCount = len(productIds); anything that is
// not a list counts as 0.
func deriveProductCount(f *models.Frame) {
	if f.Len() == 0 || !f.HasColumn("productIds") {
		return
	}
	values := make([]interface{}, f.Len())
	for i, row := range f.Rows {
		if ids, ok := row["productIds"].([]interface{}); ok {
			values[i] = len(ids)
		} else {
			values[i] = 0
		}
	}
	f.AddColumn("productCount", values)
}

// frameFromList builds a frame from an embedded list of sub-documents
// (monthlyData/dailyData). Non-list values yield an empty frame.
func frameFromList(v interface{}) *models.Frame {
	frame := models.NewFrame()
	list, ok := v.(bson.A)
	if !ok {
		return frame
	}
	for _, item := range list {
		doc, ok := item.(bson.D)
		if !ok {
			continue
		}
		row := make(map[string]interface{}, len(doc))
		for _, e := range doc {
			if e.Key == "_id" {
				continue
			}
			if !frame.HasColumn(e.Key) {
				frame.Columns = append(frame.Columns, e.Key)
			}
			row[e.Key] = normalizeValue(e.Value)
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame
}

func docLookup(doc bson.D, key string) interface{} {
	for _, e := range doc {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// normalizeValue converts BSON wrapper types into plain Go values so the
// rest of the pipeline never sees driver types.
func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time()
	case primitive.ObjectID:
		return x.Hex()
	case primitive.Decimal128:
		return x.String()
	case bson.A:
		out := make([]interface{}, len(x))
		for i, item := range x {
			out[i] = normalizeValue(item)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(x))
		for _, e := range x {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	default:
		return v
	}
}

// parseTimestamp parses date-like values best-effort; anything that does not
// parse is returned unchanged.
func parseTimestamp(v interface{}) interface{} {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t
			}
		}
		return x
	default:
		return v
	}
}
