package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBalance(t *testing.T) {
	t.Run("balance keyword", func(t *testing.T) {
		b := ParseBalance("Your balance is 100.50", "")
		require.NotNil(t, b)
		assert.Equal(t, 100.50, b.Amount)
	})

	t.Run("kenyan shillings", func(t *testing.T) {
		b := ParseBalance("Ksh 1,250.75 remaining", "")
		require.NotNil(t, b)
		assert.Equal(t, 1250.75, b.Amount)
		assert.Equal(t, "KES", b.Currency)
	})

	t.Run("dollar symbol", func(t *testing.T) {
		b := ParseBalance("$42.00 available", "")
		require.NotNil(t, b)
		assert.Equal(t, 42.0, b.Amount)
		assert.Equal(t, "USD", b.Currency)
	})

	t.Run("explicit currency wins", func(t *testing.T) {
		b := ParseBalance("Balance: 500", "NGN")
		require.NotNil(t, b)
		assert.Equal(t, "NGN", b.Currency)
	})

	t.Run("balance with expiry", func(t *testing.T) {
		b := ParseBalance("Balance: 75.00. Valid until 31/12/2026", "")
		require.NotNil(t, b)
		require.NotNil(t, b.ExpiryDate)
		assert.Equal(t, 2026, b.ExpiryDate.Year())
		assert.Equal(t, time.December, b.ExpiryDate.Month())
	})

	t.Run("no amount", func(t *testing.T) {
		assert.Nil(t, ParseBalance("Thank you for using our service", ""))
		assert.Nil(t, ParseBalance("", ""))
	})
}

func TestParseDataBundle(t *testing.T) {
	t.Run("gigabytes normalized to MB", func(t *testing.T) {
		b := ParseDataBundle("You have 1.5GB of data")
		require.NotNil(t, b)
		assert.Equal(t, 1536.0, b.AmountMB)
	})

	t.Run("megabytes", func(t *testing.T) {
		b := ParseDataBundle("Data: 500 MB")
		require.NotNil(t, b)
		assert.Equal(t, 500.0, b.AmountMB)
	})

	t.Run("remaining captured separately", func(t *testing.T) {
		b := ParseDataBundle("Bundle 2GB. Remaining: 1.5 GB")
		require.NotNil(t, b)
		require.NotNil(t, b.RemainingMB)
		assert.Equal(t, 1536.0, *b.RemainingMB)
	})

	t.Run("no data amount", func(t *testing.T) {
		assert.Nil(t, ParseDataBundle("Your airtime balance is 20"))
	})
}

func TestExtractAmount(t *testing.T) {
	v, ok := ExtractAmount("You owe 1,234.56 in total")
	assert.True(t, ok)
	assert.Equal(t, 1234.56, v)

	_, ok = ExtractAmount("no numbers here")
	assert.False(t, ok)
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name     string
		response string
		year     int
		month    time.Month
		day      int
	}{
		{"dd/mm/yyyy", "expires 31/12/2026", 2026, time.December, 31},
		{"dd-mm-yyyy", "valid to 05-01-2027", 2027, time.January, 5},
		{"yyyy-mm-dd", "until 2026-09-15 only", 2026, time.September, 15},
		{"day month year", "expires 31st Dec 2026", 2026, time.December, 31},
		{"month day year", "expires Dec 31, 2026", 2026, time.December, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ExtractDate(tt.response)
			require.NotNil(t, d)
			assert.Equal(t, tt.year, d.Year())
			assert.Equal(t, tt.month, d.Month())
			assert.Equal(t, tt.day, d.Day())
		})
	}

	t.Run("no date", func(t *testing.T) {
		assert.Nil(t, ExtractDate("Balance: 100.00"))
	})
}

func TestMenus(t *testing.T) {
	menu := "Choose:\n1. Balance\n2) Data bundles\n3. Airtime"

	assert.True(t, IsMenu(menu))
	assert.False(t, IsMenu("Your balance is 100"))

	options := MenuOptions(menu)
	require.Len(t, options, 3)
	assert.Equal(t, MenuOption{Number: "1", Text: "Balance"}, options[0])
	assert.Equal(t, MenuOption{Number: "2", Text: "Data bundles"}, options[1])
	assert.Equal(t, MenuOption{Number: "3", Text: "Airtime"}, options[2])

	assert.Nil(t, MenuOptions("no options"))
}
