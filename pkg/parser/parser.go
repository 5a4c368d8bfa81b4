// Package parser extracts structured data (balances, data bundles, dates,
// menu options) from free-form USSD response text.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Balance is a parsed account balance.
type Balance struct {
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency,omitempty"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	RawResponse string     `json:"rawResponse"`
}

// DataBundle is a parsed data allowance, normalized to megabytes.
type DataBundle struct {
	AmountMB    float64    `json:"amountMB"`
	RemainingMB *float64   `json:"remainingMB,omitempty"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
	RawResponse string     `json:"rawResponse"`
}

// MenuOption is one numbered entry of a USSD menu.
type MenuOption struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

var (
	balancePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)balance[:\s]+(?:is\s+)?[$£€\s]*(?:Ksh\s*)?([0-9,]+\.?[0-9]*)`),
		regexp.MustCompile(`(?i)(?:Ksh|KES|USD|GBP|EUR|NGN|ZAR|UGX|TZS)\s*([0-9,]+\.?[0-9]*)`),
		regexp.MustCompile(`[$£€]\s*([0-9,]+\.?[0-9]*)`),
		regexp.MustCompile(`(?i)([0-9,]+\.?[0-9]*)\s*(?:Ksh|KES|USD|GBP|EUR|NGN|ZAR)`),
	}
	currencyPattern = regexp.MustCompile(`(?i)(Ksh|KES|USD|GBP|EUR|NGN|ZAR|UGX|TZS|[$£€])`)
	currencySymbols = map[string]string{
		"ksh": "KES", "kes": "KES",
		"$": "USD", "£": "GBP", "€": "EUR",
		"usd": "USD", "gbp": "GBP", "eur": "EUR",
		"ngn": "NGN", "zar": "ZAR", "ugx": "UGX", "tzs": "TZS",
	}

	dataPattern      = regexp.MustCompile(`(?i)([0-9.]+)\s*(GB|MB|TB)`)
	remainingPattern = regexp.MustCompile(`(?i)remaining[:\s]+([0-9.]+)\s*(GB|MB)`)

	amountPattern = regexp.MustCompile(`([0-9,]+\.?[0-9]*)`)

	menuLinePattern = regexp.MustCompile(`(?m)^\s*(\d+)[.)]\s*(.+)$`)

	dmyDatePattern   = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	ymdDatePattern   = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	dayMonthPattern  = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?\s+(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+(\d{4})`)
	monthDayPattern  = regexp.MustCompile(`(?i)(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+(\d{1,2}),?\s+(\d{4})`)
	expiryKeyPattern = regexp.MustCompile(`(?i)(?:expires?|valid\s+until|expiry)[:\s]+(.+?)(?:\.|$)`)
)

// ParseBalance extracts a balance from response. The currency argument, when
// non-empty, overrides currency detection. Returns nil when no amount is
// found.
func ParseBalance(response, currency string) *Balance {
	if response == "" {
		return nil
	}

	var amount float64
	found := false
	for _, p := range balancePatterns {
		if m := p.FindStringSubmatch(response); m != nil {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err != nil {
				continue
			}
			amount = v
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	detected := currency
	if detected == "" {
		if m := currencyPattern.FindStringSubmatch(response); m != nil {
			if mapped, ok := currencySymbols[strings.ToLower(m[1])]; ok {
				detected = mapped
			} else {
				detected = m[1]
			}
		}
	}

	return &Balance{
		Amount:      amount,
		Currency:    detected,
		ExpiryDate:  ExtractDate(response),
		RawResponse: response,
	}
}

// ParseDataBundle extracts a data allowance from response, normalized to MB.
// Returns nil when no allowance is found.
func ParseDataBundle(response string) *DataBundle {
	if response == "" {
		return nil
	}

	m := dataPattern.FindStringSubmatch(response)
	if m == nil {
		return nil
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	switch strings.ToUpper(m[2]) {
	case "GB":
		amount *= 1024
	case "TB":
		amount *= 1024 * 1024
	}

	bundle := &DataBundle{
		AmountMB:    amount,
		ExpiryDate:  ExtractDate(response),
		RawResponse: response,
	}

	if rm := remainingPattern.FindStringSubmatch(response); rm != nil {
		if v, err := strconv.ParseFloat(rm[1], 64); err == nil {
			if strings.ToUpper(rm[2]) == "GB" {
				v *= 1024
			}
			bundle.RemainingMB = &v
		}
	}
	return bundle
}

// ExtractAmount returns the first numeric amount in response, or false when
// none is present.
func ExtractAmount(response string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(response)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ExtractDate returns the first recognizable date in response, or nil.
// Numeric dates are read day-first (DD/MM/YYYY) unless the year leads.
func ExtractDate(response string) *time.Time {
	if response == "" {
		return nil
	}

	if m := ymdDatePattern.FindStringSubmatch(response); m != nil {
		if d, ok := makeDate(m[1], m[2], m[3]); ok {
			return d
		}
	}
	if m := dmyDatePattern.FindStringSubmatch(response); m != nil {
		if d, ok := makeDate(m[3], m[2], m[1]); ok {
			return d
		}
	}
	if m := dayMonthPattern.FindStringSubmatch(response); m != nil {
		if d, err := time.Parse("2 Jan 2006", m[1]+" "+m[2][:3]+" "+m[3]); err == nil {
			return &d
		}
	}
	if m := monthDayPattern.FindStringSubmatch(response); m != nil {
		if d, err := time.Parse("Jan 2 2006", m[1][:3]+" "+m[2]+" "+m[3]); err == nil {
			return &d
		}
	}

	if m := expiryKeyPattern.FindStringSubmatch(response); m != nil {
		for _, layout := range []string{"2006-01-02", "02/01/2006", "2 January 2006", "Jan 2, 2006"} {
			if d, err := time.Parse(layout, strings.TrimSpace(m[1])); err == nil {
				return &d
			}
		}
	}
	return nil
}

func makeDate(year, month, day string) (*time.Time, bool) {
	y, err1 := strconv.Atoi(year)
	mo, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, false
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return nil, false
	}
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	return &t, true
}

// IsMenu reports whether response contains numbered menu options.
func IsMenu(response string) bool {
	return menuLinePattern.MatchString(response)
}

// MenuOptions returns the numbered options of a menu response, in order.
func MenuOptions(response string) []MenuOption {
	matches := menuLinePattern.FindAllStringSubmatch(response, -1)
	if len(matches) == 0 {
		return nil
	}
	options := make([]MenuOption, 0, len(matches))
	for _, m := range matches {
		options = append(options, MenuOption{
			Number: m[1],
			Text:   strings.TrimSpace(m[2]),
		})
	}
	return options
}
