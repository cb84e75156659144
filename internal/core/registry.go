package core

import (
	"fmt"
	"sync"
)

var (
	registry      = make(map[DataType]Schema)
	registryOrder []DataType
	registryMu    sync.RWMutex
)

func init() {
	Register(Schema{
		DataType: DataTransactions,
		Fields: []FieldSpec{
			{Name: FieldDate, Kind: KindDate, Required: true},
			{Name: FieldAmount, Kind: KindNumeric, Required: true},
			{Name: FieldPayee, Kind: KindText, Required: true},
			{Name: FieldAccount, Kind: KindText, Required: true},
			{Name: FieldCategory, Kind: KindText},
			{Name: FieldNotes, Kind: KindText},
			{Name: FieldType, Kind: KindEnum},
		},
	})
	Register(Schema{
		DataType: DataAccounts,
		Fields: []FieldSpec{
			{Name: FieldName, Kind: KindText, Required: true},
			{Name: FieldType, Kind: KindEnum, Required: true},
			{Name: FieldCurrency, Kind: KindCurrency, Required: true},
			{Name: FieldBalance, Kind: KindNumeric},
			{Name: FieldCreditLimit, Kind: KindNumeric},
		},
	})
	Register(Schema{
		DataType: DataCategories,
		Fields: []FieldSpec{
			{Name: FieldName, Kind: KindText, Required: true},
			{Name: FieldType, Kind: KindEnum, Required: true},
		},
	})
}

// Register adds a schema to the registry.
// Panics if a schema for the same data type is already registered.
func Register(s Schema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[s.DataType]; exists {
		panic(fmt.Sprintf("schema already registered: %s", s.DataType))
	}

	registry[s.DataType] = s
	registryOrder = append(registryOrder, s.DataType)
}

// SchemaFor returns the schema for a data type.
// Returns false for DataUnknown and unregistered types.
func SchemaFor(dt DataType) (Schema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[dt]
	return s, ok
}

// Schemas returns all registered schemas in registration order.
func Schemas() []Schema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Schema, 0, len(registryOrder))
	for _, dt := range registryOrder {
		result = append(result, registry[dt])
	}
	return result
}
