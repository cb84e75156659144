package core

// classifier.go decides whether a file holds transactions, accounts or
// categories and proposes a header-to-field mapping.
//
// The heuristic scores the header set against one keyword table per schema:
// +1 for every field a header claims and +0.5 when the first data row's
// value also looks right for that field. The best table wins if it reaches
// classificationThreshold. File-name hints can override weak results.
//
// An optional oracle (see internal/oracle) is consulted first under a
// timeout. Its answer is sanitised against the schema registry; any failure
// falls back to the heuristic, so Classify never returns an error.

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"
)

// Classifier proposes a classification from a header list and one sample row.
type Classifier interface {
	Classify(ctx context.Context, headers []string, sample Row) (Classification, error)
}

const (
	classificationThreshold = 2.0
	maxConfidence           = 95
	largeImportRows         = 1000

	// DefaultOracleTimeout bounds a single oracle consultation.
	DefaultOracleTimeout = 10 * time.Second
)

type fieldPattern struct {
	field      Field
	re         *regexp.Regexp
	looksValid func(string) bool
}

type patternTable struct {
	dataType DataType
	patterns []fieldPattern // scored, in claim order
	extras   []fieldPattern // mapped when unclaimed, never scored
}

func pattern(f Field, expr string, check func(string) bool) fieldPattern {
	return fieldPattern{field: f, re: regexp.MustCompile(expr), looksValid: check}
}

var patternTables = []patternTable{
	{
		dataType: DataTransactions,
		patterns: []fieldPattern{
			pattern(FieldDate, `date|time|when|posted|day`, looksLikeDate),
			pattern(FieldType, `\btype\b|kind|direction|dr\s*/\s*cr|cr\s*/\s*dr`, looksLikeDirection),
			pattern(FieldCategory, `categor|group|class|tag`, nil),
			pattern(FieldAmount, `amount|value|sum|total|price|cost|debit|credit|balance|amt`, looksLikeAmount),
			pattern(FieldAccount, `account|acct|bank|card|wallet|source`, nil),
			pattern(FieldPayee, `payee|merchant|vendor|description|desc|narration|details|party|recipient|store|shop|particular|counterpart`, nil),
		},
		extras: []fieldPattern{
			pattern(FieldNotes, `note|memo|comment|remark|reference`, nil),
		},
	},
	{
		dataType: DataAccounts,
		patterns: []fieldPattern{
			pattern(FieldType, `type|kind`, looksLikeAccountType),
			pattern(FieldCurrency, `currency|\bccy\b|\bcur\b|\biso\b`, looksLikeCurrency),
			pattern(FieldBalance, `balance|amount|opening|starting|initial|current|value`, looksLikeAmount),
			pattern(FieldName, `name|account|title|bank|institution|label`, nil),
		},
		extras: []fieldPattern{
			pattern(FieldCreditLimit, `limit`, looksLikeAmount),
		},
	},
	{
		dataType: DataCategories,
		patterns: []fieldPattern{
			pattern(FieldType, `type|kind|nature|flow`, looksLikeCategoryType),
			pattern(FieldName, `name|categor|title|label`, nil),
		},
	},
}

func looksLikeDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

func looksLikeAmount(s string) bool {
	_, err := ParseAmount(s)
	return err == nil
}

func looksLikeAccountType(s string) bool {
	_, ok := NormalizeAccountType(s)
	return ok
}

func looksLikeCategoryType(s string) bool {
	_, ok := NormalizeCategoryType(s)
	return ok
}

func looksLikeCurrency(s string) bool {
	_, ok := NormalizeCurrency(s)
	return ok
}

func looksLikeDirection(s string) bool {
	_, ok := directionFromType(s)
	return ok
}

type tableScore struct {
	table   patternTable
	score   float64
	mapping ColumnMapping
}

// scoreTable maps each header to the first unclaimed matching field.
func scoreTable(t patternTable, headers []string, sample Row) tableScore {
	result := tableScore{table: t, mapping: ColumnMapping{}}
	claimed := make(map[Field]bool, len(t.patterns))

	for _, h := range headers {
		lower := strings.ToLower(h)
		for _, p := range t.patterns {
			if claimed[p.field] || !p.re.MatchString(lower) {
				continue
			}
			claimed[p.field] = true
			result.mapping[h] = p.field
			result.score++
			if p.looksValid != nil && sample != nil && p.looksValid(strings.TrimSpace(sample[h])) {
				result.score += 0.5
			}
			break
		}
	}

	for _, h := range headers {
		if _, mapped := result.mapping[h]; mapped {
			continue
		}
		lower := strings.ToLower(h)
		for _, p := range t.extras {
			if !claimed[p.field] && p.re.MatchString(lower) {
				claimed[p.field] = true
				result.mapping[h] = p.field
				break
			}
		}
	}

	return result
}

// Heuristic is the keyword classifier as a Classifier. It never fails.
type Heuristic struct{}

func (Heuristic) Classify(_ context.Context, headers []string, sample Row) (Classification, error) {
	var rows []Row
	if sample != nil {
		rows = []Row{sample}
	}
	return ClassifyHeuristic(headers, rows, ""), nil
}

// ClassifyHeuristic scores headers against every pattern table. rows supplies
// the sample (first row) and the row count used for suggestions.
func ClassifyHeuristic(headers []string, rows []Row, fileName string) Classification {
	var sample Row
	if len(rows) > 0 {
		sample = rows[0]
	}

	scores := make([]tableScore, len(patternTables))
	best := -1
	for i, t := range patternTables {
		scores[i] = scoreTable(t, headers, sample)
		if scores[i].score < classificationThreshold {
			continue
		}
		if best < 0 || outranks(scores[i], scores[best]) {
			best = i
		}
	}

	best = applyFileNameHints(scores, best, fileName)

	c := Classification{
		DataType:       DataUnknown,
		ColumnMappings: ColumnMapping{},
		Source:         SourceHeuristic,
	}
	if best >= 0 {
		s := scores[best]
		c.DataType = s.table.dataType
		c.ColumnMappings = s.mapping
		c.Confidence = confidence(s.score, len(s.table.patterns))
	}

	annotate(&c, len(rows))
	return c
}

// outranks reports whether a beats b. Ties on score go to the table whose
// required fields are all mapped, and after that to the one matching the
// larger share of its own patterns.
func outranks(a, b tableScore) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if ac, bc := a.complete(), b.complete(); ac != bc {
		return ac
	}
	return a.score/float64(len(a.table.patterns)) > b.score/float64(len(b.table.patterns))
}

func (s tableScore) complete() bool {
	schema, ok := SchemaFor(s.table.dataType)
	return ok && len(s.mapping.Missing(schema)) == 0
}

// applyFileNameHints returns the index of the table to use, or -1.
func applyFileNameHints(scores []tableScore, best int, fileName string) int {
	name := strings.ToLower(fileName)
	if name == "" {
		return best
	}

	indexOf := func(dt DataType) int {
		for i, s := range scores {
			if s.table.dataType == dt {
				return i
			}
		}
		return -1
	}

	if strings.Contains(name, "categor") {
		cat := indexOf(DataCategories)
		if best >= 0 && best != cat && scores[best].score >= classificationThreshold+2 {
			return best
		}
		return cat
	}

	if best >= 0 {
		return best
	}

	switch {
	case strings.Contains(name, "transaction"), strings.Contains(name, "expense"), strings.Contains(name, "income"):
		return indexOf(DataTransactions)
	case strings.Contains(name, "account"), strings.Contains(name, "bank"):
		return indexOf(DataAccounts)
	}
	return best
}

func confidence(score float64, tableSize int) int {
	if tableSize == 0 || score <= 0 {
		return 0
	}
	c := int(math.Round(score / float64(tableSize) * 100))
	if c > maxConfidence {
		c = maxConfidence
	}
	return c
}

// annotate adds the warnings and suggestions derived from the mapping.
func annotate(c *Classification, rowCount int) {
	schema, ok := SchemaFor(c.DataType)
	if !ok {
		c.Warnings = appendUnique(c.Warnings, "Could not determine whether this file contains transactions, accounts or categories")
		c.Suggestions = appendUnique(c.Suggestions, "Rename the column headers or map the columns manually")
	} else {
		for _, f := range c.ColumnMappings.Missing(schema) {
			c.Warnings = appendUnique(c.Warnings, fmt.Sprintf("Required field %q is not mapped", f))
		}
		c.Suggestions = appendUnique(c.Suggestions, "Review the suggested column mappings before importing")
	}
	if rowCount > largeImportRows {
		c.Suggestions = appendUnique(c.Suggestions,
			fmt.Sprintf("This file has %d rows; the import may take several minutes", rowCount))
	}
	if c.Warnings == nil {
		c.Warnings = []string{}
	}
	if c.Suggestions == nil {
		c.Suggestions = []string{}
	}
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// TypeClassifier consults an optional oracle and falls back to the heuristic.
type TypeClassifier struct {
	oracle  Classifier
	timeout time.Duration
	logger  *slog.Logger
}

// NewTypeClassifier creates a classifier. oracle may be nil.
func NewTypeClassifier(oracle Classifier, timeout time.Duration, logger *slog.Logger) *TypeClassifier {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TypeClassifier{oracle: oracle, timeout: timeout, logger: logger}
}

// Classify never fails: oracle errors, timeouts and malformed answers all
// fall back to ClassifyHeuristic.
func (c *TypeClassifier) Classify(ctx context.Context, headers []string, rows []Row, fileName string) Classification {
	if c.oracle != nil {
		result, err := c.consult(ctx, headers, rows)
		if err == nil {
			annotate(&result, len(rows))
			return result
		}
		c.logger.Warn("classification oracle failed, using heuristic",
			"file", fileName,
			"error", err,
		)
	}
	return ClassifyHeuristic(headers, rows, fileName)
}

type oracleOutcome struct {
	c   Classification
	err error
}

func (c *TypeClassifier) consult(ctx context.Context, headers []string, rows []Row) (Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var sample Row
	if len(rows) > 0 {
		sample = rows[0]
	}

	// Buffered so a late answer does not leak the goroutine.
	done := make(chan oracleOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- oracleOutcome{err: fmt.Errorf("oracle panic: %v", r)}
			}
		}()
		result, err := c.oracle.Classify(ctx, headers, sample)
		done <- oracleOutcome{c: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return Classification{}, out.err
		}
		return sanitizeOracleResult(out.c, headers)
	case <-ctx.Done():
		return Classification{}, fmt.Errorf("oracle: %w", ctx.Err())
	}
}

// sanitizeOracleResult rejects answers that reference unknown data types,
// headers that are not in the file, or fields outside the schema.
func sanitizeOracleResult(c Classification, headers []string) (Classification, error) {
	schema, ok := SchemaFor(c.DataType)
	if !ok {
		return Classification{}, fmt.Errorf("oracle returned unsupported data type %q", c.DataType)
	}

	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}

	mapping := make(ColumnMapping, len(c.ColumnMappings))
	used := make(map[Field]string, len(c.ColumnMappings))
	for _, h := range c.ColumnMappings.Headers() {
		f := c.ColumnMappings[h]
		if f == "" {
			continue
		}
		if !known[h] {
			return Classification{}, fmt.Errorf("oracle mapped unknown header %q", h)
		}
		if _, legal := schema.Spec(f); !legal {
			return Classification{}, fmt.Errorf("oracle mapped %q to field %q not in %s", h, f, c.DataType)
		}
		if prev, dup := used[f]; dup {
			return Classification{}, fmt.Errorf("oracle mapped %q and %q to %q", prev, h, f)
		}
		used[f] = h
		mapping[h] = f
	}

	out := Classification{
		DataType:       c.DataType,
		ColumnMappings: mapping,
		Confidence:     min(max(c.Confidence, 0), 100),
		Suggestions:    append([]string(nil), c.Suggestions...),
		Warnings:       append([]string(nil), c.Warnings...),
		Source:         SourceOracle,
	}
	return out, nil
}
