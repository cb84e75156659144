package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHeuristic_Transactions(t *testing.T) {
	headers := []string{"Date", "Amount", "Payee", "Account"}
	rows := []Row{{"Date": "2024-01-05", "Amount": "-42.50", "Payee": "Coffee Shop", "Account": "Checking"}}

	c := ClassifyHeuristic(headers, rows, "export.csv")

	assert.Equal(t, DataTransactions, c.DataType)
	assert.Equal(t, ColumnMapping{
		"Date":    FieldDate,
		"Amount":  FieldAmount,
		"Payee":   FieldPayee,
		"Account": FieldAccount,
	}, c.ColumnMappings)
	assert.GreaterOrEqual(t, c.Confidence, 50)
	assert.Equal(t, SourceHeuristic, c.Source)
	assert.Empty(t, c.Warnings)
	assert.Contains(t, c.Suggestions, "Review the suggested column mappings before importing")
}

func TestClassifyHeuristic_Accounts(t *testing.T) {
	headers := []string{"Account Name", "Type", "Currency", "Opening Balance"}
	rows := []Row{{"Account Name": "HDFC Savings", "Type": "Savings", "Currency": "INR", "Opening Balance": "1000"}}

	c := ClassifyHeuristic(headers, rows, "")

	assert.Equal(t, DataAccounts, c.DataType)
	assert.Equal(t, FieldName, c.ColumnMappings["Account Name"])
	assert.Equal(t, FieldType, c.ColumnMappings["Type"])
	assert.Equal(t, FieldCurrency, c.ColumnMappings["Currency"])
	assert.Equal(t, FieldBalance, c.ColumnMappings["Opening Balance"])
	assert.Equal(t, maxConfidence, c.Confidence, "confidence is capped")
}

func TestClassifyHeuristic_CreditLimitIsMappedWithoutScoring(t *testing.T) {
	headers := []string{"Name", "Type", "Currency", "Credit Limit"}
	rows := []Row{{"Name": "Amex", "Type": "Credit Card", "Currency": "USD", "Credit Limit": "5000"}}

	c := ClassifyHeuristic(headers, rows, "")

	assert.Equal(t, DataAccounts, c.DataType)
	assert.Equal(t, FieldCreditLimit, c.ColumnMappings["Credit Limit"])
}

func TestClassifyHeuristic_Categories(t *testing.T) {
	headers := []string{"Name", "Type"}
	rows := []Row{{"Name": "Food", "Type": "Expense"}}

	c := ClassifyHeuristic(headers, rows, "")

	assert.Equal(t, DataCategories, c.DataType)
	assert.Equal(t, ColumnMapping{"Name": FieldName, "Type": FieldType}, c.ColumnMappings)
	assert.Greater(t, c.Confidence, 0)
}

func TestClassifyHeuristic_TiePrefersCompleteSchema(t *testing.T) {
	headers := []string{"Category Name", "Category Type"}
	rows := []Row{{"Category Name": "Groceries", "Category Type": "Expense"}}

	c := ClassifyHeuristic(headers, rows, "export.csv")

	assert.Equal(t, DataCategories, c.DataType)
	assert.Equal(t, ColumnMapping{"Category Name": FieldName, "Category Type": FieldType}, c.ColumnMappings)
	assert.Equal(t, maxConfidence, c.Confidence)
	assert.Empty(t, c.Warnings)
}

func TestOutranks(t *testing.T) {
	tx, accounts, categories := patternTables[0], patternTables[1], patternTables[2]

	tests := []struct {
		name string
		a, b tableScore
		want bool
	}{
		{
			name: "higher score wins",
			a:    tableScore{table: tx, score: 3},
			b:    tableScore{table: categories, score: 2.5, mapping: ColumnMapping{"N": FieldName, "T": FieldType}},
			want: true,
		},
		{
			name: "complete schema wins a tie",
			a:    tableScore{table: tx, score: 2.5, mapping: ColumnMapping{"N": FieldCategory, "T": FieldType}},
			b:    tableScore{table: categories, score: 2.5, mapping: ColumnMapping{"N": FieldName, "T": FieldType}},
			want: false,
		},
		{
			name: "smaller table wins an otherwise even tie",
			a:    tableScore{table: categories, score: 2, mapping: ColumnMapping{"N": FieldName}},
			b:    tableScore{table: accounts, score: 2, mapping: ColumnMapping{"N": FieldName, "T": FieldType}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outranks(tt.a, tt.b))
		})
	}
}

func TestClassifyHeuristic_SingleSchemaMatches(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    DataType
	}{
		{name: "transactions only", headers: []string{"Payee", "Date"}, want: DataTransactions},
		{name: "accounts only", headers: []string{"Currency", "Opening Balance"}, want: DataAccounts},
		{name: "categories only", headers: []string{"Label", "Nature"}, want: DataCategories},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifyHeuristic(tt.headers, nil, "")
			assert.Equal(t, tt.want, c.DataType)
			assert.Greater(t, c.Confidence, 0)
			assert.NotEmpty(t, c.ColumnMappings)
		})
	}
}

func TestClassifyHeuristic_Unknown(t *testing.T) {
	c := ClassifyHeuristic([]string{"Foo", "Bar"}, []Row{{"Foo": "1", "Bar": "2"}}, "data.csv")

	assert.Equal(t, DataUnknown, c.DataType)
	assert.Equal(t, 0, c.Confidence)
	assert.Empty(t, c.ColumnMappings)
	assert.NotEmpty(t, c.Warnings)
}

func TestClassifyHeuristic_FileNameHints(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		sample   Row
		fileName string
		want     DataType
	}{
		{
			name:     "expense hint resolves unknown",
			headers:  []string{"Foo", "Bar"},
			fileName: "my_expenses.csv",
			want:     DataTransactions,
		},
		{
			name:     "bank hint resolves unknown",
			headers:  []string{"Foo", "Bar"},
			fileName: "bank_export.csv",
			want:     DataAccounts,
		},
		{
			name:     "hints ignored when scores decide",
			headers:  []string{"Name", "Type"},
			sample:   Row{"Name": "Food", "Type": "Expense"},
			fileName: "bank_transactions.csv",
			want:     DataCategories,
		},
		{
			name:     "category hint overrides a narrow win",
			headers:  []string{"Description", "Amount"},
			sample:   Row{"Description": "Groceries", "Amount": "Expense"},
			fileName: "Categories.csv",
			want:     DataCategories,
		},
		{
			name:     "category hint loses to a wide margin",
			headers:  []string{"Date", "Amount", "Payee", "Account"},
			sample:   Row{"Date": "2024-01-05", "Amount": "-42.50", "Payee": "Coffee Shop", "Account": "Checking"},
			fileName: "categorized_transactions.csv",
			want:     DataTransactions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []Row
			if tt.sample != nil {
				rows = []Row{tt.sample}
			}
			c := ClassifyHeuristic(tt.headers, rows, tt.fileName)
			assert.Equal(t, tt.want, c.DataType)
		})
	}
}

func TestClassifyHeuristic_Annotations(t *testing.T) {
	headers := []string{"Date", "Amount", "Payee"}
	rows := make([]Row, 1001)
	for i := range rows {
		rows[i] = Row{"Date": "2024-01-05", "Amount": "1", "Payee": "X"}
	}

	c := ClassifyHeuristic(headers, rows, "")

	require.Equal(t, DataTransactions, c.DataType)
	assert.Contains(t, c.Warnings, `Required field "account" is not mapped`)
	assert.Contains(t, c.Suggestions, "This file has 1001 rows; the import may take several minutes")
}

func TestHeuristic_ImplementsClassifier(t *testing.T) {
	var classifier Classifier = Heuristic{}

	c, err := classifier.Classify(context.Background(), []string{"Name", "Type"}, Row{"Name": "Rent", "Type": "Expense"})
	require.NoError(t, err)
	assert.Equal(t, DataCategories, c.DataType)
}

// oracleFunc adapts a function to Classifier.
type oracleFunc func(ctx context.Context, headers []string, sample Row) (Classification, error)

func (f oracleFunc) Classify(ctx context.Context, headers []string, sample Row) (Classification, error) {
	return f(ctx, headers, sample)
}

func TestTypeClassifier_Oracle(t *testing.T) {
	headers := []string{"Date", "Amount", "Payee", "Account"}
	rows := []Row{{"Date": "2024-01-05", "Amount": "-42.50", "Payee": "Coffee Shop", "Account": "Checking"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	good := Classification{
		DataType: DataTransactions,
		ColumnMappings: ColumnMapping{
			"Date": FieldDate, "Amount": FieldAmount, "Payee": FieldPayee, "Account": FieldAccount,
		},
		Confidence: 90,
	}

	tests := []struct {
		name       string
		oracle     oracleFunc
		wantSource ClassificationSource
	}{
		{
			name: "valid answer is used",
			oracle: func(context.Context, []string, Row) (Classification, error) {
				return good, nil
			},
			wantSource: SourceOracle,
		},
		{
			name: "error falls back",
			oracle: func(context.Context, []string, Row) (Classification, error) {
				return Classification{}, errors.New("quota exceeded")
			},
			wantSource: SourceHeuristic,
		},
		{
			name: "illegal field falls back",
			oracle: func(context.Context, []string, Row) (Classification, error) {
				bad := good
				bad.ColumnMappings = ColumnMapping{"Amount": FieldBalance}
				return bad, nil
			},
			wantSource: SourceHeuristic,
		},
		{
			name: "unknown header falls back",
			oracle: func(context.Context, []string, Row) (Classification, error) {
				bad := good
				bad.ColumnMappings = ColumnMapping{"Memo": FieldNotes}
				return bad, nil
			},
			wantSource: SourceHeuristic,
		},
		{
			name: "field mapped twice falls back",
			oracle: func(context.Context, []string, Row) (Classification, error) {
				bad := good
				bad.ColumnMappings = ColumnMapping{"Payee": FieldPayee, "Account": FieldPayee}
				return bad, nil
			},
			wantSource: SourceHeuristic,
		},
		{
			name: "unknown data type falls back",
			oracle: func(context.Context, []string, Row) (Classification, error) {
				return Classification{DataType: "budgets"}, nil
			},
			wantSource: SourceHeuristic,
		},
		{
			name: "panic falls back",
			oracle: func(context.Context, []string, Row) (Classification, error) {
				panic(fmt.Sprintf("nil map in %s", "oracle"))
			},
			wantSource: SourceHeuristic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := NewTypeClassifier(tt.oracle, time.Second, logger)

			c := classifier.Classify(context.Background(), headers, rows, "export.csv")

			assert.Equal(t, tt.wantSource, c.Source)
			assert.Equal(t, DataTransactions, c.DataType)
			assert.Len(t, c.ColumnMappings, 4)
		})
	}
}

func TestTypeClassifier_OracleTimeout(t *testing.T) {
	slow := oracleFunc(func(context.Context, []string, Row) (Classification, error) {
		time.Sleep(300 * time.Millisecond) // ignores ctx on purpose
		return Classification{DataType: DataAccounts}, nil
	})
	classifier := NewTypeClassifier(slow, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	start := time.Now()
	c := classifier.Classify(context.Background(), []string{"Name", "Type"}, []Row{{"Name": "Food", "Type": "Expense"}}, "")

	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, SourceHeuristic, c.Source)
	assert.Equal(t, DataCategories, c.DataType)
}

func TestTypeClassifier_OracleSeesSampleRow(t *testing.T) {
	var gotHeaders []string
	var gotSample Row
	oracle := oracleFunc(func(_ context.Context, headers []string, sample Row) (Classification, error) {
		gotHeaders, gotSample = headers, sample
		return Classification{DataType: DataCategories, ColumnMappings: ColumnMapping{"Name": FieldName, "Type": FieldType}, Confidence: 150}, nil
	})
	classifier := NewTypeClassifier(oracle, time.Second, nil)

	rows := []Row{{"Name": "Food", "Type": "Expense"}, {"Name": "Rent", "Type": "Expense"}}
	c := classifier.Classify(context.Background(), []string{"Name", "Type"}, rows, "")

	assert.Equal(t, []string{"Name", "Type"}, gotHeaders)
	assert.Equal(t, rows[0], gotSample)
	assert.Equal(t, 100, c.Confidence, "oracle confidence is clamped")
	assert.Equal(t, SourceOracle, c.Source)
}
