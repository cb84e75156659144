package core

// convert.go turns the messy cell values of user-supplied files into typed
// values:
//   - Multiple date formats (US, EU, ISO, bank-statement styles)
//   - Currency symbols, codes and thousand separators in amounts
//   - Accounting negatives written as (123.45)
//   - Excel formula prefixes (="value")
//
// Amounts are parsed into decimal.Decimal and only converted to integer
// minor units at the storage boundary.

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// groupedRegex accepts thousands separators in western (1,234,567) or Indian
// (12,34,567) grouping. Anything else with a comma, such as the decimal-comma
// form 1.234,56, is rejected rather than guessed.
var groupedRegex = regexp.MustCompile(`^[+-]?\d{1,3}((,\d{3})+|(,\d{2})*,\d{3})(\.\d*)?$`)

// maxAmount is the largest magnitude whose minor units fit in an int64.
var maxAmount = decimal.New(math.MaxInt64, -2)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
// Month-first layouts are tried before day-first ones.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
		"2/1/06", "02/01/06", "2-Jan-06", "02-Jan-06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02", "2006-1-2",
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"Jan 2, 2006", "Jan 2 2006", "January 2, 2006", "January 2 2006",
		"2 Jan 2006", "02 Jan 2006", "2 January 2006", "2-Jan-2006", "02-Jan-2006",
		"Mon, 02 Jan 2006", "Mon Jan 2 2006",
		"20060102",
	}
)

var (
	errEmptyAmount   = errors.New("empty amount")
	errInvalidAmount = errors.New("invalid number")
)

// amountNoise is stripped from amounts before parsing. Longer tokens come
// first so "Rs." is removed before "Rs".
var amountNoise = []string{
	"US$", "Rs.", "Rs", "INR", "USD", "EUR", "GBP",
	"$", "€", "£", "₹", "¥",
	" ", " ",
}

// ParseDate parses a date cell using the accepted layouts.
func ParseDate(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return dateOnly(t), true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return dateOnly(t), true
		}
	}

	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseAmount parses a monetary cell.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative).
func ParseAmount(s string) (decimal.Decimal, error) {
	s = CleanCell(s)
	if s == "" {
		return decimal.Zero, errEmptyAmount
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, noise := range amountNoise {
		s = strings.ReplaceAll(s, noise, "")
	}

	// Symbol after sign: "-$12" leaves "-12", "$-12" leaves "-12"
	if isNegative {
		s = "-" + strings.TrimPrefix(s, "-")
	}

	if strings.Contains(s, ",") {
		if !groupedRegex.MatchString(s) {
			return decimal.Zero, errInvalidAmount
		}
		s = strings.ReplaceAll(s, ",", "")
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, errInvalidAmount
	}

	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, errInvalidAmount
	}
	if d.Abs().GreaterThan(maxAmount) {
		return decimal.Zero, errInvalidAmount
	}
	return d, nil
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts an amount to integer hundredths, rounding half away
// from zero. The sign is preserved. d must come from ParseAmount, which
// rejects magnitudes that do not fit.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// NormalizeName trims, lower-cases and collapses internal whitespace.
// It is the key entity uniqueness is enforced on.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DisplayName trims and collapses whitespace but keeps the original case.
func DisplayName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// accountTypeVocabulary is checked by substring before the exact match.
var accountTypeVocabulary = []struct {
	fragment string
	typ      AccountType
}{
	{"checking", AccountChecking},
	{"saving", AccountSavings},
	{"credit", AccountCreditCard},
	{"cash", AccountCash},
	{"invest", AccountInvestment},
}

// NormalizeAccountType maps free text onto the account type enumeration.
func NormalizeAccountType(s string) (AccountType, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return "", false
	}
	for _, v := range accountTypeVocabulary {
		if strings.Contains(lower, v.fragment) {
			return v.typ, true
		}
	}
	for _, t := range AccountTypes {
		if strings.EqualFold(lower, string(t)) {
			return t, true
		}
	}
	return "", false
}

// InferAccountType guesses the type of an account created on demand from
// its name alone.
func InferAccountType(name string) AccountType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "credit"), strings.Contains(lower, "card"):
		return AccountCreditCard
	case strings.Contains(lower, "saving"):
		return AccountSavings
	case strings.Contains(lower, "cash"), strings.Contains(lower, "wallet"):
		return AccountCash
	case strings.Contains(lower, "invest"), strings.Contains(lower, "broker"):
		return AccountInvestment
	default:
		return AccountChecking
	}
}

// NormalizeCategoryType maps free text onto Income or Expense. Containment
// subsumes the exact case-insensitive match.
func NormalizeCategoryType(s string) (CategoryType, bool) {
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case lower == "":
		return "", false
	case strings.Contains(lower, "income"):
		return CategoryIncome, true
	case strings.Contains(lower, "expense"):
		return CategoryExpense, true
	}
	return "", false
}

// currencySymbols maps the symbols users type instead of codes.
var currencySymbols = map[string]string{
	"$":      "USD",
	"us$":    "USD",
	"\u20ac": "EUR",
	"\u00a3": "GBP",
	"\u20b9": "INR",
	"rs":     "INR",
	"rs.":    "INR",
	"\u00a5": "JPY",
}

// currencyCodes is the set of recognized ISO 4217 codes.
var currencyCodes = map[string]bool{
	"AED": true, "ARS": true, "AUD": true, "BDT": true, "BRL": true, "CAD": true,
	"CHF": true, "CLP": true, "CNY": true, "COP": true, "CZK": true, "DKK": true,
	"EGP": true, "EUR": true, "GBP": true, "HKD": true, "HUF": true, "IDR": true,
	"ILS": true, "INR": true, "JPY": true, "KES": true, "KRW": true, "LKR": true,
	"MXN": true, "MYR": true, "NGN": true, "NOK": true, "NPR": true, "NZD": true,
	"PHP": true, "PKR": true, "PLN": true, "QAR": true, "RON": true, "RUB": true,
	"SAR": true, "SEK": true, "SGD": true, "THB": true, "TRY": true, "TWD": true,
	"UAH": true, "USD": true, "VND": true, "ZAR": true,
}

// NormalizeCurrency returns the ISO code for a currency cell.
func NormalizeCurrency(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if code, ok := currencySymbols[strings.ToLower(s)]; ok {
		return code, true
	}
	code := strings.ToUpper(s)
	if currencyCodes[code] {
		return code, true
	}
	return "", false
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}
