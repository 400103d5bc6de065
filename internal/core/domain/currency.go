package domain

// Currency describes a supported ISO-4217 currency and its minor-unit scale.
type Currency struct {
	Code       string `json:"code"`       // ISO-4217 three-letter code, e.g. "USD"
	Name       string `json:"name"`       // e.g. "US Dollar"
	MinorUnits int32  `json:"minorUnits"` // decimal places of the minor unit (JPY: 0, BHD: 3)
}

// currencies is the static registry used to validate Money construction.
// Currencies are reference data, not user-managed, so the table lives in code.
var currencies = map[string]Currency{
	"USD": {Code: "USD", Name: "US Dollar", MinorUnits: 2},
	"EUR": {Code: "EUR", Name: "Euro", MinorUnits: 2},
	"GBP": {Code: "GBP", Name: "Pound Sterling", MinorUnits: 2},
	"JPY": {Code: "JPY", Name: "Japanese Yen", MinorUnits: 0},
	"CHF": {Code: "CHF", Name: "Swiss Franc", MinorUnits: 2},
	"INR": {Code: "INR", Name: "Indian Rupee", MinorUnits: 2},
	"AUD": {Code: "AUD", Name: "Australian Dollar", MinorUnits: 2},
	"CAD": {Code: "CAD", Name: "Canadian Dollar", MinorUnits: 2},
	"SGD": {Code: "SGD", Name: "Singapore Dollar", MinorUnits: 2},
	"HKD": {Code: "HKD", Name: "Hong Kong Dollar", MinorUnits: 2},
	"NZD": {Code: "NZD", Name: "New Zealand Dollar", MinorUnits: 2},
	"ZAR": {Code: "ZAR", Name: "South African Rand", MinorUnits: 2},
	"CNY": {Code: "CNY", Name: "Yuan Renminbi", MinorUnits: 2},
	"BHD": {Code: "BHD", Name: "Bahraini Dinar", MinorUnits: 3},
	"KWD": {Code: "KWD", Name: "Kuwaiti Dinar", MinorUnits: 3},
}

// LookupCurrency returns the registry entry for the given ISO-4217 code.
func LookupCurrency(code string) (Currency, bool) {
	c, ok := currencies[code]
	return c, ok
}

// IsKnownCurrency reports whether the code is present in the registry.
func IsKnownCurrency(code string) bool {
	_, ok := currencies[code]
	return ok
}

// ListCurrencies returns every registered currency. Order is unspecified.
func ListCurrencies() []Currency {
	out := make([]Currency, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, c)
	}
	return out
}
