// Package codes is a lookup library of well-known carrier USSD shortcodes
// with support for caller-supplied overrides.
package codes

import (
	"sort"
	"strings"
	"sync"
)

// Type selects one kind of shortcode in lookups.
type Type string

const (
	TypeBalanceCheck Type = "balanceCheck"
	TypeDataBundles  Type = "dataBundles"
	TypeAirtimeTopUp Type = "airtimeTopUp"
	TypeCustomerCare Type = "customerCare"
	TypeMyNumber     Type = "myNumber"
)

// CustomCountry is the country bucket used when AddCustomCode is called
// without a country.
const CustomCountry = "CUSTOM"

// SearchResult is one carrier matched by SearchCarrier.
type SearchResult struct {
	Carrier string       `json:"carrier"`
	Country string       `json:"country"`
	Codes   CarrierCodes `json:"codes"`
}

// Library resolves carrier shortcodes. Custom codes take precedence over the
// shipped table. The zero value is not usable; construct with NewLibrary.
type Library struct {
	mu     sync.RWMutex
	custom map[string]map[string]CarrierCodes
}

// NewLibrary creates a library backed by the built-in carrier table.
func NewLibrary() *Library {
	return &Library{custom: make(map[string]map[string]CarrierCodes)}
}

// BalanceCheck returns the balance query code for carrier, or "" if unknown.
// country is an optional ISO code narrowing the search.
func (l *Library) BalanceCheck(carrier, country string) string {
	c, _ := l.lookup(carrier, country)
	return c.BalanceCheck
}

// DataBundles returns the data bundle codes for carrier, or nil.
func (l *Library) DataBundles(carrier, country string) []string {
	c, _ := l.lookup(carrier, country)
	return c.DataBundles
}

// AirtimeTopUp returns the airtime top-up code for carrier, or "".
func (l *Library) AirtimeTopUp(carrier, country string) string {
	c, _ := l.lookup(carrier, country)
	return c.AirtimeTopUp
}

// CustomerCare returns the customer care number for carrier, or "".
func (l *Library) CustomerCare(carrier, country string) string {
	c, _ := l.lookup(carrier, country)
	return c.CustomerCare
}

// MyNumber returns the own-number query code for carrier, or "".
func (l *Library) MyNumber(carrier, country string) string {
	c, _ := l.lookup(carrier, country)
	return c.MyNumber
}

// Code returns the shortcode of the given type for carrier. For
// TypeDataBundles the first bundle code is returned.
func (l *Library) Code(carrier string, typ Type, country string) string {
	c, ok := l.lookup(carrier, country)
	if !ok {
		return ""
	}
	switch typ {
	case TypeBalanceCheck:
		return c.BalanceCheck
	case TypeDataBundles:
		if len(c.DataBundles) > 0 {
			return c.DataBundles[0]
		}
		return ""
	case TypeAirtimeTopUp:
		return c.AirtimeTopUp
	case TypeCustomerCare:
		return c.CustomerCare
	case TypeMyNumber:
		return c.MyNumber
	}
	return ""
}

// AllCodes returns every known code for carrier, or false if the carrier is
// unknown.
func (l *Library) AllCodes(carrier, country string) (CarrierCodes, bool) {
	return l.lookup(carrier, country)
}

// AddCustomCode registers code for carrier under the given type and country.
// A custom code overrides (not merges with) the built-in entry of the same
// carrier and type. An empty country stores under CustomCountry.
func (l *Library) AddCustomCode(carrier string, typ Type, code string, country string) {
	if country == "" {
		country = CustomCountry
	}
	name := normalizeCarrier(carrier)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.custom[country] == nil {
		l.custom[country] = make(map[string]CarrierCodes)
	}
	entry := l.custom[country][name]
	switch typ {
	case TypeBalanceCheck:
		entry.BalanceCheck = code
	case TypeDataBundles:
		entry.DataBundles = []string{code}
	case TypeAirtimeTopUp:
		entry.AirtimeTopUp = code
	case TypeCustomerCare:
		entry.CustomerCare = code
	case TypeMyNumber:
		entry.MyNumber = code
	}
	l.custom[country][name] = entry
}

// ClearCustomCodes drops every registered override.
func (l *Library) ClearCustomCodes() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.custom = make(map[string]map[string]CarrierCodes)
}

// ExportCustomCodes returns a deep copy of the overrides, suitable for the
// caller to persist.
func (l *Library) ExportCustomCodes() map[string]map[string]CarrierCodes {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]map[string]CarrierCodes, len(l.custom))
	for country, carriers := range l.custom {
		out[country] = make(map[string]CarrierCodes, len(carriers))
		for name, c := range carriers {
			c.DataBundles = append([]string(nil), c.DataBundles...)
			out[country][name] = c
		}
	}
	return out
}

// ImportCustomCodes merges previously exported overrides into the library.
func (l *Library) ImportCustomCodes(custom map[string]map[string]CarrierCodes) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for country, carriers := range custom {
		if l.custom[country] == nil {
			l.custom[country] = make(map[string]CarrierCodes, len(carriers))
		}
		for name, c := range carriers {
			l.custom[country][name] = c
		}
	}
}

// AvailableCarriers lists known carrier names, sorted. With a country only
// that country's carriers are returned.
func (l *Library) AvailableCarriers(country string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set := make(map[string]struct{})
	if country != "" {
		for name := range builtin[country] {
			set[name] = struct{}{}
		}
		for name := range l.custom[country] {
			set[name] = struct{}{}
		}
	} else {
		for _, carriers := range builtin {
			for name := range carriers {
				set[name] = struct{}{}
			}
		}
		for _, carriers := range l.custom {
			for name := range carriers {
				set[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AvailableCountries lists known ISO country codes, sorted.
func (l *Library) AvailableCountries() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set := make(map[string]struct{}, len(builtin))
	for country := range builtin {
		set[country] = struct{}{}
	}
	for country := range l.custom {
		set[country] = struct{}{}
	}

	countries := make([]string, 0, len(set))
	for country := range set {
		countries = append(countries, country)
	}
	sort.Strings(countries)
	return countries
}

// SearchCarrier returns built-in carriers whose name contains query,
// case-insensitively. With a country only that country is searched.
func (l *Library) SearchCarrier(query, country string) []SearchResult {
	q := strings.ToLower(query)

	var results []SearchResult
	for countryCode, carriers := range builtin {
		if country != "" && country != countryCode {
			continue
		}
		for name, c := range carriers {
			if strings.Contains(strings.ToLower(name), q) {
				results = append(results, SearchResult{Carrier: name, Country: countryCode, Codes: c})
			}
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Country != results[j].Country {
			return results[i].Country < results[j].Country
		}
		return results[i].Carrier < results[j].Carrier
	})
	return results
}

// lookup resolves carrier codes, custom overrides first, then the built-in
// table, searching all countries when country is empty. Field-level merge:
// a custom entry only shadows the fields it sets.
func (l *Library) lookup(carrier, country string) (CarrierCodes, bool) {
	name := normalizeCarrier(carrier)

	l.mu.RLock()
	defer l.mu.RUnlock()

	var base CarrierCodes
	found := false
	if country != "" {
		if c, ok := builtin[country][name]; ok {
			base, found = c, true
		}
	} else {
		// Fixed scan order: a carrier present in several countries must
		// resolve the same way on every call.
		for _, cc := range sortedCountries(builtin) {
			if c, ok := builtin[cc][name]; ok {
				base, found = c, true
				break
			}
		}
	}

	var override CarrierCodes
	overridden := false
	if country != "" {
		if c, ok := l.custom[country][name]; ok {
			override, overridden = c, true
		}
	} else {
		for _, cc := range sortedCountries(l.custom) {
			if c, ok := l.custom[cc][name]; ok {
				override, overridden = c, true
				break
			}
		}
	}

	if overridden {
		if override.BalanceCheck != "" {
			base.BalanceCheck = override.BalanceCheck
		}
		if len(override.DataBundles) > 0 {
			base.DataBundles = override.DataBundles
		}
		if override.AirtimeTopUp != "" {
			base.AirtimeTopUp = override.AirtimeTopUp
		}
		if override.CustomerCare != "" {
			base.CustomerCare = override.CustomerCare
		}
		if override.MyNumber != "" {
			base.MyNumber = override.MyNumber
		}
		found = true
	}
	return base, found
}

func sortedCountries(m map[string]map[string]CarrierCodes) []string {
	out := make([]string, 0, len(m))
	for country := range m {
		out = append(out, country)
	}
	sort.Strings(out)
	return out
}

func normalizeCarrier(carrier string) string {
	trimmed := strings.TrimSpace(carrier)
	if canonical, ok := carrierAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}
