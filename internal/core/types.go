package core

import (
	"sort"
	"strings"
	"time"
)

// DataType identifies which canonical schema a file represents.
type DataType string

const (
	DataTransactions DataType = "transactions"
	DataAccounts     DataType = "accounts"
	DataCategories   DataType = "categories"
	DataUnknown      DataType = "unknown"
)

// Field is a canonical mapping target. Legal values depend on the schema.
type Field string

const (
	FieldDate        Field = "date"
	FieldAmount      Field = "amount"
	FieldPayee       Field = "payee"
	FieldAccount     Field = "account"
	FieldCategory    Field = "category"
	FieldNotes       Field = "notes"
	FieldType        Field = "type"
	FieldName        Field = "name"
	FieldCurrency    Field = "currency"
	FieldBalance     Field = "balance"
	FieldCreditLimit Field = "creditLimit"
)

// ValueKind represents the expected shape of a field's raw value.
type ValueKind int

const (
	KindText ValueKind = iota
	KindEnum
	KindDate
	KindNumeric
	KindCurrency
)

// FieldSpec defines the rules for a single canonical field.
type FieldSpec struct {
	Name     Field
	Kind     ValueKind
	Required bool
}

// Schema is one of the fixed target record shapes.
type Schema struct {
	DataType DataType
	Fields   []FieldSpec
}

// Spec returns the spec for f, or false if f is not part of the schema.
func (s Schema) Spec(f Field) (FieldSpec, bool) {
	for _, spec := range s.Fields {
		if spec.Name == f {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Required returns the required fields in declaration order.
func (s Schema) Required() []Field {
	var out []Field
	for _, spec := range s.Fields {
		if spec.Required {
			out = append(out, spec.Name)
		}
	}
	return out
}

// Optional returns the optional fields in declaration order.
func (s Schema) Optional() []Field {
	var out []Field
	for _, spec := range s.Fields {
		if !spec.Required {
			out = append(out, spec.Name)
		}
	}
	return out
}

// Row is one data row keyed by header. Column order lives in
// ImportSession.DetectedColumns.
type Row map[string]string

// ColumnMapping associates a source header with one canonical field.
type ColumnMapping map[string]Field

// Headers returns the mapped headers sorted for stable iteration.
func (m ColumnMapping) Headers() []string {
	headers := make([]string, 0, len(m))
	for h := range m {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return headers
}

// Apply projects a raw row onto canonical fields. Values are trimmed.
// Headers missing from the row yield empty values. If a field is mapped
// twice the first header in sorted order wins.
func (m ColumnMapping) Apply(row Row) map[Field]string {
	out := make(map[Field]string, len(m))
	for _, h := range m.Headers() {
		f := m[h]
		if f == "" {
			continue
		}
		if _, exists := out[f]; exists {
			continue
		}
		out[f] = strings.TrimSpace(row[h])
	}
	return out
}

// Missing returns the required fields of schema that no header maps to.
func (m ColumnMapping) Missing(schema Schema) []Field {
	mapped := make(map[Field]bool, len(m))
	for _, f := range m {
		mapped[f] = true
	}
	var missing []Field
	for _, f := range schema.Required() {
		if !mapped[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

// Clone returns a copy of the mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	if m == nil {
		return nil
	}
	out := make(ColumnMapping, len(m))
	for h, f := range m {
		out[h] = f
	}
	return out
}

// ClassificationSource records which path produced a classification.
type ClassificationSource string

const (
	SourceHeuristic ClassificationSource = "heuristic"
	SourceOracle    ClassificationSource = "oracle"
)

// Classification is the proposed data type and column mapping for a file.
type Classification struct {
	DataType       DataType             `json:"dataType"`
	ColumnMappings ColumnMapping        `json:"columnMappings"`
	Confidence     int                  `json:"confidence"`
	Suggestions    []string             `json:"suggestions"`
	Warnings       []string             `json:"warnings"`
	Source         ClassificationSource `json:"source"`
}

// Status is the position of an ImportSession in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAnalyzing Status = "analyzing"
	StatusReady     Status = "ready"
	StatusImporting Status = "importing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ImportSession tracks one file through classification, confirmation and
// execution.
type ImportSession struct {
	ID                    string          `json:"id"`
	OwnerID               string          `json:"ownerId"`
	FileName              string          `json:"fileName"`
	FileSizeBytes         int64           `json:"fileSizeBytes"`
	RawRows               []Row           `json:"-"`
	PreviewRows           []Row           `json:"previewRows"`
	DetectedColumns       []string        `json:"detectedColumns"`
	Classification        *Classification `json:"classification,omitempty"`
	UserConfirmedMappings ColumnMapping   `json:"userConfirmedMappings,omitempty"`
	Status                Status          `json:"status"`
	TotalRows             int             `json:"totalRows"`
	ImportedRowCount      int             `json:"importedRowCount"`
	FailedRowCount        int             `json:"failedRowCount"`
	DuplicateRowCount     int             `json:"duplicateRowCount"`
	ImportErrors          []string        `json:"importErrors"`
	FailureReason         string          `json:"failureReason,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
	CompletedAt           *time.Time      `json:"completedAt,omitempty"`
}

// DataType returns the classified data type, or DataUnknown before analysis.
func (s *ImportSession) DataType() DataType {
	if s.Classification == nil || s.Classification.DataType == "" {
		return DataUnknown
	}
	return s.Classification.DataType
}

// EffectiveMapping returns the user-confirmed mapping when present,
// otherwise the classification's proposal.
func (s *ImportSession) EffectiveMapping() ColumnMapping {
	if len(s.UserConfirmedMappings) > 0 {
		return s.UserConfirmedMappings
	}
	if s.Classification != nil {
		return s.Classification.ColumnMappings
	}
	return nil
}
