// Package focus parses FOCUS-shaped cost and usage exports into rows ready
// for ingestion. Header matching is case-insensitive and rows with
// malformed values are reported individually so one bad line never sinks a
// whole file.
package focus

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Column names from the FOCUS specification that ingestion relies on.
const (
	ColBillingPeriodStart = "billingperiodstart"
	ColChargePeriodStart  = "chargeperiodstart"
	ColChargePeriodEnd    = "chargeperiodend"
	ColListCost           = "listcost"
	ColContractedCost     = "contractedcost"
	ColBilledCost         = "billedcost"
	ColEffectiveCost      = "effectivecost"
	ColResourceID         = "resourceid"
	ColResourceName       = "resourcename"
	ColServiceName        = "servicename"
	ColTags               = "tags"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01-02T15:04:05-07:00",
}

// TagMapping names the tag keys that carry attribution data in the Tags
// payload. Zero-value fields fall back to the conventional key names.
type TagMapping struct {
	PIEmail     string `mapstructure:"pi_email"`
	Project     string `mapstructure:"project"`
	FundOrg     string `mapstructure:"fund_org"`
	Reference1  string `mapstructure:"reference_1"`
	Reference2  string `mapstructure:"reference_2"`
	AccountCode string `mapstructure:"account_code"`
}

// DefaultTagMapping is used when no mapping is configured.
func DefaultTagMapping() TagMapping {
	return TagMapping{
		PIEmail:     "pi_email",
		Project:     "project",
		FundOrg:     "fund_org",
		Reference1:  "reference_1",
		Reference2:  "reference_2",
		AccountCode: "account_code",
	}
}

func (m TagMapping) withDefaults() TagMapping {
	d := DefaultTagMapping()
	if m.PIEmail == "" {
		m.PIEmail = d.PIEmail
	}
	if m.Project == "" {
		m.Project = d.Project
	}
	if m.FundOrg == "" {
		m.FundOrg = d.FundOrg
	}
	if m.Reference1 == "" {
		m.Reference1 = d.Reference1
	}
	if m.Reference2 == "" {
		m.Reference2 = d.Reference2
	}
	if m.AccountCode == "" {
		m.AccountCode = d.AccountCode
	}
	return m
}

// Attribution is the stakeholder data projected out of a row's tag payload.
type Attribution struct {
	StakeholderEmail string
	ProjectID        string
	FundOrg          string
	Reference1       string
	Reference2       string
	AccountCode      string
}

// Row is one successfully parsed FOCUS line.
type Row struct {
	PeriodName        string // YYYY-MM derived from BillingPeriodStart
	BillingStart      time.Time
	ChargePeriodStart time.Time
	ChargePeriodEnd   *time.Time

	ListCost       decimal.NullDecimal
	ContractedCost decimal.NullDecimal
	BilledCost     decimal.Decimal
	EffectiveCost  decimal.NullDecimal

	ResourceID   string
	ResourceKey  string // ResourceID, or a fingerprint of the line when absent
	ResourceName string
	ServiceName  string

	RawTags json.RawMessage
	Attribution
}

// ParseError describes one rejected line. Line numbers are 1-based file
// positions, so the first data row is line 2.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: field %q: %v", e.Line, e.Field, e.Err)
}

// Parse reads a FOCUS CSV stream. Malformed rows are collected into the
// returned ParseError slice; a non-nil error is returned only when the
// stream itself is unusable (missing required headers, unreadable input).
func Parse(r io.Reader, mapping TagMapping) ([]Row, []ParseError, error) {
	mapping = mapping.withDefaults()

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty input")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{ColBillingPeriodStart, ColChargePeriodStart, ColBilledCost} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var rows []Row
	var parseErrs []ParseError
	for lineNo := 2; ; lineNo++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrs = append(parseErrs, ParseError{Line: lineNo, Field: "", Err: err})
			continue
		}

		row, perr := parseRecord(record, cols, mapping)
		if perr != nil {
			perr.Line = lineNo
			parseErrs = append(parseErrs, *perr)
			continue
		}
		rows = append(rows, row)
	}
	return rows, parseErrs, nil
}

func parseRecord(record []string, cols map[string]int, mapping TagMapping) (Row, *ParseError) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var row Row

	billingStart, err := parseTime(field(ColBillingPeriodStart))
	if err != nil {
		return row, &ParseError{Field: "BillingPeriodStart", Err: err}
	}
	row.BillingStart = billingStart
	row.PeriodName = billingStart.Format("2006-01")

	chargeStart, err := parseTime(field(ColChargePeriodStart))
	if err != nil {
		return row, &ParseError{Field: "ChargePeriodStart", Err: err}
	}
	row.ChargePeriodStart = chargeStart

	if v := field(ColChargePeriodEnd); v != "" {
		end, err := parseTime(v)
		if err != nil {
			return row, &ParseError{Field: "ChargePeriodEnd", Err: err}
		}
		row.ChargePeriodEnd = &end
	}

	billed, err := decimal.NewFromString(field(ColBilledCost))
	if err != nil {
		return row, &ParseError{Field: "BilledCost", Err: err}
	}
	row.BilledCost = billed

	if row.ListCost, err = parseNullDecimal(field(ColListCost)); err != nil {
		return row, &ParseError{Field: "ListCost", Err: err}
	}
	if row.ContractedCost, err = parseNullDecimal(field(ColContractedCost)); err != nil {
		return row, &ParseError{Field: "ContractedCost", Err: err}
	}
	if row.EffectiveCost, err = parseNullDecimal(field(ColEffectiveCost)); err != nil {
		return row, &ParseError{Field: "EffectiveCost", Err: err}
	}

	row.ResourceID = field(ColResourceID)
	row.ResourceName = field(ColResourceName)
	row.ServiceName = field(ColServiceName)

	if row.ResourceID != "" {
		row.ResourceKey = row.ResourceID
	} else {
		row.ResourceKey = fingerprint(record)
	}

	if tags := field(ColTags); tags != "" {
		parsed := map[string]string{}
		if err := json.Unmarshal([]byte(tags), &parsed); err != nil {
			// Tags that are not a flat string map are kept raw but
			// contribute no attribution.
			var loose map[string]any
			if err := json.Unmarshal([]byte(tags), &loose); err != nil {
				return row, &ParseError{Field: "Tags", Err: err}
			}
			for k, v := range loose {
				if s, ok := v.(string); ok {
					parsed[k] = s
				}
			}
		}
		row.RawTags = json.RawMessage(tags)
		row.Attribution = Attribution{
			StakeholderEmail: parsed[mapping.PIEmail],
			ProjectID:        parsed[mapping.Project],
			FundOrg:          parsed[mapping.FundOrg],
			Reference1:       parsed[mapping.Reference1],
			Reference2:       parsed[mapping.Reference2],
			AccountCode:      parsed[mapping.AccountCode],
		}
	}

	return row, nil
}

func parseNullDecimal(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// fingerprint derives a stable resource key for rows that carry no
// ResourceId, so re-imports still hit the same natural key.
func fingerprint(record []string) string {
	h := sha256.New()
	for _, f := range record {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return "fp-" + hex.EncodeToString(h.Sum(nil))[:32]
}
