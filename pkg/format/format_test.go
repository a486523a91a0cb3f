package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "below one unit", in: "123400000000000000", want: "0.1234 ETH"},
		{name: "exactly one unit", in: "1000000000000000000", want: "1.00 ETH"},
		{name: "five hundred stays below the K boundary", in: "500000000000000000000", want: "500.00 ETH"},
		{name: "just below 1000", in: "999990000000000000000", want: "999.99 ETH"},
		{name: "K suffix starts at exactly 1000", in: "1000000000000000000000", want: "1.0K ETH"},
		{name: "large", in: "12345000000000000000000", want: "12.3K ETH"},
		{name: "zero", in: "0", want: "0.0000 ETH"},
		{name: "garbage is zero", in: "not-a-number", want: "0.0000 ETH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Amount(tt.in))
			assert.Equal(t, Amount(tt.in), Amount(tt.in))
		})
	}
}

func TestAmount_Monotonic(t *testing.T) {
	inputs := []string{
		"1000000000000000",
		"900000000000000000",
		"1000000000000000000",
		"2500000000000000000",
		"999000000000000000000",
		"1000000000000000000000",
		"5000000000000000000000",
	}
	prev := -1.0
	for _, in := range inputs {
		v := Float(in)
		assert.Greater(t, v, prev, in)
		prev = v
	}
}

func TestAmountValue(t *testing.T) {
	assert.Equal(t, "2.00 ETH", AmountValue(2))
	assert.Equal(t, "1.5K ETH", AmountValue(1500))
	assert.Equal(t, "0.5000 ETH", AmountValue(0.5))
}

func TestUnitsKeepsPrecision(t *testing.T) {
	u := Units("1000000000000000001")
	assert.Equal(t, "1.000000000000000001", u.String())
}

func TestAddress(t *testing.T) {
	addr := "0xf822d0e6889d8b1766ddcfb82e984f2b09e4d222"
	got := Address(addr)
	assert.Equal(t, "0xf822...d222", got)
	assert.Len(t, got, 13)

	ten := "0123456789"
	assert.Equal(t, "012345...6789", Address(ten))

	assert.Equal(t, "0xabc", Address("0xabc"))
	assert.Equal(t, "", Address(""))
}

func TestTime(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	assert.Equal(t, "08:00:00", Time("0", shanghai))
	assert.Equal(t, "22:13:20", Time("1700000000", time.UTC))
	assert.Equal(t, "22:13:20", Time("1700000000", nil))
	assert.Equal(t, "", Time("yesterday", time.UTC))
}

func TestCount(t *testing.T) {
	assert.Equal(t, "0", Count(0))
	assert.Equal(t, "999", Count(999))
	assert.Equal(t, "12,345", Count(12345))
}
