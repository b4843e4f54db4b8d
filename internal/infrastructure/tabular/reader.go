// Package tabular decodes the five delimited input tables and encodes the
// opportunity artifact.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// Input file names within an input location.
const (
	FileTransactions = "transactions.csv"
	FileSearchLogs   = "search_logs.csv"
	FileReviews      = "reviews.csv"
	FileCatalog      = "catalog.csv"
	FileCompetitors  = "competitors.csv"
)

// InputFiles lists every input table in load order.
var InputFiles = []string{FileTransactions, FileSearchLogs, FileReviews, FileCatalog, FileCompetitors}

// Required columns per table.  Other columns (dates, prices) are ignored.
var (
	TransactionColumns = []string{"product_id", "discount_pct", "units"}
	SearchLogColumns   = []string{"query", "results_found", "clicks", "added_to_cart"}
	ReviewColumns      = []string{"product_id", "rating", "review_text"}
	CatalogColumns     = []string{"product_id", "category", "name", "features"}
	CompetitorColumns  = []string{"category", "key_features"}
)

// table is a decoded CSV with a header index.
type table struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func readTable(r io.Reader, name string, required []string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInputMalformed, "parse "+name)
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeInputMissingColumn, name+" has no header row").
			WithDetail("required=" + strings.Join(required, ","))
	}

	columns := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := columns[h]; !dup {
			columns[h] = i
		}
	}
	var missing []string
	for _, c := range required {
		if _, ok := columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Newf(errors.ErrCodeInputMissingColumn, "%s lacks required columns", name).
			WithDetail("missing=" + strings.Join(missing, ","))
	}
	return &table{name: name, columns: columns, rows: records[1:]}, nil
}

// cell returns the value of column in row i, or "" for short rows.
func (t *table) cell(i int, column string) string {
	idx := t.columns[column]
	row := t.rows[i]
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func (t *table) malformed(i int, column, value, want string) error {
	// Line numbers are 1-based and count the header.
	return errors.Newf(errors.ErrCodeInputMalformed, "%s: invalid %s value", t.name, want).
		WithDetail(fmt.Sprintf("line=%d column=%s value=%q", i+2, column, value))
}

func (t *table) floatAt(i int, column string) (float64, error) {
	raw := strings.TrimSpace(t.cell(i, column))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, t.malformed(i, column, raw, "numeric")
	}
	return v, nil
}

// intAt accepts integral decimals such as "5.0".
func (t *table) intAt(i int, column string) (int, error) {
	raw := strings.TrimSpace(t.cell(i, column))
	if v, err := strconv.Atoi(raw); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, t.malformed(i, column, raw, "integer")
	}
	return int(f), nil
}

// boolAt accepts true/false in any case and numeric 0/1.
func (t *table) boolAt(i int, column string) (bool, error) {
	raw := strings.TrimSpace(t.cell(i, column))
	switch strings.ToLower(raw) {
	case "true", "1", "1.0", "yes":
		return true, nil
	case "false", "0", "0.0", "no":
		return false, nil
	}
	return false, t.malformed(i, column, raw, "boolean")
}

// ReadTransactions decodes transactions.csv.
func ReadTransactions(r io.Reader) ([]opportunity.Transaction, error) {
	t, err := readTable(r, FileTransactions, TransactionColumns)
	if err != nil {
		return nil, err
	}
	out := make([]opportunity.Transaction, 0, len(t.rows))
	for i := range t.rows {
		discount, err := t.floatAt(i, "discount_pct")
		if err != nil {
			return nil, err
		}
		units, err := t.intAt(i, "units")
		if err != nil {
			return nil, err
		}
		out = append(out, opportunity.Transaction{
			ProductID:   t.cell(i, "product_id"),
			DiscountPct: discount,
			Units:       units,
		})
	}
	return out, nil
}

// ReadSearchLogs decodes search_logs.csv.
func ReadSearchLogs(r io.Reader) ([]opportunity.SearchLogEntry, error) {
	t, err := readTable(r, FileSearchLogs, SearchLogColumns)
	if err != nil {
		return nil, err
	}
	out := make([]opportunity.SearchLogEntry, 0, len(t.rows))
	for i := range t.rows {
		results, err := t.intAt(i, "results_found")
		if err != nil {
			return nil, err
		}
		clicks, err := t.intAt(i, "clicks")
		if err != nil {
			return nil, err
		}
		cart, err := t.boolAt(i, "added_to_cart")
		if err != nil {
			return nil, err
		}
		out = append(out, opportunity.SearchLogEntry{
			Query:        t.cell(i, "query"),
			ResultsFound: results,
			Clicks:       clicks,
			AddedToCart:  cart,
		})
	}
	return out, nil
}

// ReadReviews decodes reviews.csv.
func ReadReviews(r io.Reader) ([]opportunity.Review, error) {
	t, err := readTable(r, FileReviews, ReviewColumns)
	if err != nil {
		return nil, err
	}
	out := make([]opportunity.Review, 0, len(t.rows))
	for i := range t.rows {
		rating, err := t.intAt(i, "rating")
		if err != nil {
			return nil, err
		}
		out = append(out, opportunity.Review{
			ProductID:  t.cell(i, "product_id"),
			Rating:     rating,
			ReviewText: t.cell(i, "review_text"),
		})
	}
	return out, nil
}

// ReadCatalog decodes catalog.csv.
func ReadCatalog(r io.Reader) ([]opportunity.CatalogItem, error) {
	t, err := readTable(r, FileCatalog, CatalogColumns)
	if err != nil {
		return nil, err
	}
	out := make([]opportunity.CatalogItem, 0, len(t.rows))
	for i := range t.rows {
		out = append(out, opportunity.CatalogItem{
			ProductID: t.cell(i, "product_id"),
			Category:  t.cell(i, "category"),
			Name:      t.cell(i, "name"),
			Features:  t.cell(i, "features"),
		})
	}
	return out, nil
}

// ReadCompetitors decodes competitors.csv.
func ReadCompetitors(r io.Reader) ([]opportunity.CompetitorRecord, error) {
	t, err := readTable(r, FileCompetitors, CompetitorColumns)
	if err != nil {
		return nil, err
	}
	out := make([]opportunity.CompetitorRecord, 0, len(t.rows))
	for i := range t.rows {
		out = append(out, opportunity.CompetitorRecord{
			Category:    t.cell(i, "category"),
			KeyFeatures: t.cell(i, "key_features"),
		})
	}
	return out, nil
}

// Decode reads one named input table into the matching field of dst.
func Decode(name string, r io.Reader, dst *opportunity.InputTables) error {
	var err error
	switch name {
	case FileTransactions:
		dst.Transactions, err = ReadTransactions(r)
	case FileSearchLogs:
		dst.Searches, err = ReadSearchLogs(r)
	case FileReviews:
		dst.Reviews, err = ReadReviews(r)
	case FileCatalog:
		dst.Catalog, err = ReadCatalog(r)
	case FileCompetitors:
		dst.Competitors, err = ReadCompetitors(r)
	default:
		err = errors.Newf(errors.ErrCodeValidation, "unknown input table %q", name)
	}
	return err
}
