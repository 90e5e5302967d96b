package crm

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"wholesale-crm/internal/common/errors"
	"wholesale-crm/internal/models"
	"wholesale-crm/internal/performance"
	"wholesale-crm/internal/persistence"
)

// ImportResult summarizes a CSV import. Rejected rows do not abort the batch.
type ImportResult struct {
	Imported []models.Buyer
	Errors   []error
}

// header aliases accepted for each buyer field, lowercased.
var importColumns = map[string][]string{
	"name":          {"name", "buyer name", "full name"},
	"company":       {"company", "company name"},
	"email":         {"email", "email address"},
	"phone":         {"phone", "phone number"},
	"type":          {"type", "buyer type"},
	"status":        {"status"},
	"minBudget":     {"minbudget", "min budget", "min_budget"},
	"maxBudget":     {"maxbudget", "max budget", "max_budget"},
	"areas":         {"preferredareas", "preferred areas", "areas"},
	"types":         {"propertytypes", "property types"},
	"minBedrooms":   {"minbedrooms", "min bedrooms", "min beds"},
	"minBathrooms":  {"minbathrooms", "min bathrooms", "min baths"},
	"minSquareFeet": {"minsquarefeet", "min sqft", "min square feet"},
	"lastContact":   {"lastcontact", "last contact"},
	"notes":         {"notes"},
}

// ImportBuyersCSV reads a header row followed by one buyer per row. Buyers
// receive source csv-import unless the row says otherwise.
func (s *Store) ImportBuyersCSV(r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return ImportResult{}, errors.NewValidationError("file", "CSV file is empty")
	}
	if err != nil {
		return ImportResult{}, errors.NewParseError(err)
	}

	cols := mapColumns(header)
	if _, ok := cols["name"]; !ok {
		return ImportResult{}, errors.NewValidationError("file", "CSV header has no name column")
	}

	var result ImportResult
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for row := 2; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if stderrors.As(err, &perr) {
				result.Errors = append(result.Errors, errors.NewImportFailedError(row, err))
				continue
			}
			return result, errors.NewParseError(err)
		}
		if blank(fields) {
			continue
		}

		params, err := rowToParams(cols, fields)
		if err != nil {
			result.Errors = append(result.Errors, errors.NewImportFailedError(row, err))
			continue
		}
		buyer, err := models.NewBuyer(params, now)
		if err != nil {
			result.Errors = append(result.Errors, errors.NewImportFailedError(row, err))
			continue
		}
		performance.Apply(&buyer, s.contracts, now)

		if s.buyers, err = insert(s.buyers, persistence.Buyers, buyer); err != nil {
			result.Errors = append(result.Errors, errors.NewImportFailedError(row, err))
			continue
		}
		result.Imported = append(result.Imported, buyer)
	}

	if len(result.Imported) > 0 {
		persist(s, persistence.Buyers, s.buyers)
	}
	if len(result.Errors) > 0 {
		s.logger.Warn("buyer import rejected rows", map[string]interface{}{
			"imported": len(result.Imported),
			"rejected": len(result.Errors),
		})
	}
	return result, nil
}

func mapColumns(header []string) map[string]int {
	cols := make(map[string]int)
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for field, aliases := range importColumns {
			if _, seen := cols[field]; seen {
				continue
			}
			for _, a := range aliases {
				if h == a {
					cols[field] = i
				}
			}
		}
	}
	return cols
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func rowToParams(cols map[string]int, fields []string) (models.BuyerParams, error) {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	p := models.BuyerParams{
		Name:           get("name"),
		Company:        get("company"),
		Email:          get("email"),
		Phone:          get("phone"),
		Type:           models.BuyerType(strings.ToLower(get("type"))),
		Status:         models.BuyerStatus(strings.ToLower(get("status"))),
		PreferredAreas: splitList(get("areas")),
		PropertyTypes:  splitList(get("types")),
		Source:         models.BuyerSourceImport,
		Notes:          get("notes"),
	}

	var err error
	if p.MinBudget, err = parseMoney("minBudget", get("minBudget")); err != nil {
		return p, err
	}
	if p.MaxBudget, err = parseMoney("maxBudget", get("maxBudget")); err != nil {
		return p, err
	}
	if p.MinBathrooms, err = parseFloat("minBathrooms", get("minBathrooms")); err != nil {
		return p, err
	}
	if p.MinBedrooms, err = parseInt("minBedrooms", get("minBedrooms")); err != nil {
		return p, err
	}
	if p.MinSquareFeet, err = parseInt("minSquareFeet", get("minSquareFeet")); err != nil {
		return p, err
	}
	if v := get("lastContact"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return p, fmt.Errorf("lastContact: %w", err)
		}
		p.LastContact = &t
	}
	return p, nil
}

// splitList accepts either ';' or ',' separated values since quoted commas
// are easy to lose in spreadsheet exports.
func splitList(v string) []string {
	return models.ParseList(strings.ReplaceAll(v, ";", ","))
}

func parseMoney(field, v string) (*float64, error) {
	v = strings.NewReplacer("$", "", ",", "").Replace(v)
	return parseFloat(field, v)
}

func parseFloat(field, v string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%s: %q is not a number", field, v)
	}
	return &f, nil
}

func parseInt(field, v string) (*int, error) {
	f, err := parseFloat(field, strings.ReplaceAll(v, ",", ""))
	if err != nil || f == nil {
		return nil, err
	}
	n := int(*f)
	return &n, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02", "01/02/2006", "1/2/2006"}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}
