package decimal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Decimal{
		"12":      1200,
		"12.3":    1230,
		"12.34":   1234,
		"-0.5":    -50,
		"+7.05":   705,
		".75":     75,
		"1.005":   101,
		"1.004":   100,
		" 599.00": 59900,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "abc", "1.2.3", "1,5", "--1", "1e30"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestArithmetic(t *testing.T) {
	price := MustParse("499.99")
	qty := MustParse("2.5")

	assert.Equal(t, "1249.98", price.Mul(qty).String())
	assert.Equal(t, "999.98", price.MulInt(2).String())
	assert.Equal(t, "45.00", FromInt(500).Percent(MustParse("9")).String())
	assert.Equal(t, "0.09", MustParse("1.00").Percent(MustParse("9.00")).String())
	assert.Equal(t, "-1.50", MustParse("1.5").Neg().String())
	assert.Equal(t, -1, MustParse("1").Cmp(MustParse("1.01")))
	assert.Equal(t, "10.00", Sum(FromInt(3), FromInt(7)).String())
}

func TestBig(t *testing.T) {
	assert.Equal(t, "-12.05", MustParse("-12.05").Big().String())
	assert.Equal(t, 2.5, MustParse("2.5").Float64())
	assert.Equal(t, Decimal(1234), FromFloat(12.335))
}

func TestPercentRoundsHalfAwayFromZero(t *testing.T) {
	// 0.05 * 9% = 0.0045 -> 0.00, 0.50 * 9% = 0.045 -> 0.05
	assert.Equal(t, "0.00", MustParse("0.05").Percent(MustParse("9")).String())
	assert.Equal(t, "0.05", MustParse("0.50").Percent(MustParse("9")).String())
	assert.Equal(t, "-0.05", MustParse("-0.50").Percent(MustParse("9")).String())
}

func TestJSON(t *testing.T) {
	var payload struct {
		A Decimal  `json:"a"`
		B Decimal  `json:"b"`
		C *Decimal `json:"c"`
		D Decimal  `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12.5, "b": "3.25", "c": null, "d": null}`), &payload))
	assert.Equal(t, Decimal(1250), payload.A)
	assert.Equal(t, Decimal(325), payload.B)
	assert.Nil(t, payload.C)
	assert.True(t, payload.D.IsZero())

	out, err := json.Marshal(map[string]Decimal{"total": MustParse("1180")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 1180.00}`, string(out))
}

func TestScan(t *testing.T) {
	var d Decimal
	require.NoError(t, d.Scan([]byte("18.00")))
	assert.Equal(t, Decimal(1800), d)
	require.NoError(t, d.Scan(int64(3)))
	assert.Equal(t, Decimal(300), d)
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	assert.Error(t, d.Scan(true))
}
