package numbering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderPrefix(t *testing.T) {
	assert.Equal(t, "ORD/25-06/", OrderPrefix(time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "ORD/24-12/", OrderPrefix(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestNext(t *testing.T) {
	cases := []struct {
		prefix, last, want string
	}{
		{"ORD/25-06/", "", "ORD/25-06/0001"},
		{"ORD/25-06/", "ORD/25-06/0009", "ORD/25-06/0010"},
		{"ORD/25-06/", "ORD/25-06/9999", "ORD/25-06/10000"},
		{"INV/25-26/", "INV/25-26/abc", "INV/25-26/0001"},
		{"Q-", "Q-0041", "Q-0042"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Next(tc.prefix, tc.last), tc.last)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "INV/25-26/0007", Format("{prefix}{number}", "INV/25-26/", 7))
	assert.Equal(t, "0012-INV", Format("{number}-{prefix}", "INV", 12))
	assert.Equal(t, "X0001", Format("", "X", 1))
}

func TestSeriesKey(t *testing.T) {
	assert.Equal(t, "INV/25-26/", SeriesKey("{prefix}{number}", "INV/25-26/"))
	assert.Equal(t, "", SeriesKey("{number}-{prefix}", "INV"))
	assert.Equal(t, "SHOP-INV-", SeriesKey("SHOP-{prefix}-{number}", "INV"))

	key := SeriesKey("{number}-{prefix}", "INV")
	assert.Equal(t, 13, NextSeq(key, "0012-INV"))
}
