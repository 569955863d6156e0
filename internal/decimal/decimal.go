// Package decimal is a two-place fixed point number used for money, tax
// rates and stock quantities. The value is stored as an int64 count of
// hundredths so it stays comparable; parsing, products and formatting go
// through shopspring/decimal.
package decimal

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	sd "github.com/shopspring/decimal"
)

type Decimal int64

const (
	scale  = 100
	places = 2
)

var (
	Zero Decimal

	maxAbs = sd.New(math.MaxInt64, -places)
)

func FromInt(n int64) Decimal { return Decimal(n * scale) }

// FromCents builds a value from an integer count of hundredths (paise).
func FromCents(n int64) Decimal { return Decimal(n) }

// Parse accepts "12", "12.3", "12.34", "-0.5". More than two fractional
// digits are rounded half away from zero.
func Parse(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("decimal: empty string")
	}
	v, err := sd.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("decimal: invalid number %q", s)
	}
	return fromBig(v)
}

func MustParse(s string) Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromFloat rounds f to two places.
func FromFloat(f float64) Decimal {
	d, _ := fromBig(sd.NewFromFloat(f))
	return d
}

// Big returns the value as an arbitrary precision decimal.
func (d Decimal) Big() sd.Decimal { return sd.New(int64(d), -places) }

func fromBig(v sd.Decimal) (Decimal, error) {
	v = v.Round(places)
	if v.Abs().GreaterThan(maxAbs) {
		return 0, fmt.Errorf("decimal: %s is out of range", v)
	}
	return Decimal(v.Shift(places).IntPart()), nil
}

func mustBig(v sd.Decimal) Decimal {
	d, err := fromBig(v)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) Add(o Decimal) Decimal { return d + o }
func (d Decimal) Sub(o Decimal) Decimal { return d - o }
func (d Decimal) Neg() Decimal          { return -d }
func (d Decimal) MulInt(n int) Decimal  { return d * Decimal(n) }

// Mul multiplies two fixed point values, e.g. quantity × unit price.
func (d Decimal) Mul(o Decimal) Decimal {
	return mustBig(d.Big().Mul(o.Big()))
}

// Percent returns d × rate / 100 where rate is itself a percentage (9.00 = 9%).
func (d Decimal) Percent(rate Decimal) Decimal {
	return mustBig(d.Big().Mul(rate.Big()).Shift(-2))
}

func (d Decimal) Abs() Decimal {
	if d < 0 {
		return -d
	}
	return d
}

func (d Decimal) Cmp(o Decimal) int {
	switch {
	case d < o:
		return -1
	case d > o:
		return 1
	}
	return 0
}

func (d Decimal) IsZero() bool     { return d == 0 }
func (d Decimal) IsNegative() bool { return d < 0 }
func (d Decimal) IsPositive() bool { return d > 0 }

// Cents returns the raw count of hundredths (paise for INR amounts).
func (d Decimal) Cents() int64 { return int64(d) }

func (d Decimal) Float64() float64 { return d.Big().InexactFloat64() }

func (d Decimal) String() string { return d.Big().StringFixed(places) }

func Sum(values ...Decimal) Decimal {
	var total Decimal
	for _, v := range values {
		total += v
	}
	return total
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*d = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = str
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// UnmarshalParam lets gin bind the value from form and query fields.
func (d *Decimal) UnmarshalParam(param string) error {
	if strings.TrimSpace(param) == "" {
		*d = 0
		return nil
	}
	v, err := Parse(param)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Value stores the number as a numeric literal.
func (d Decimal) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Decimal) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = 0
		return nil
	case []byte:
		p, err := Parse(string(v))
		if err != nil {
			return err
		}
		*d = p
	case string:
		p, err := Parse(v)
		if err != nil {
			return err
		}
		*d = p
	case int64:
		*d = FromInt(v)
	case float64:
		*d = FromFloat(v)
	default:
		return fmt.Errorf("decimal: cannot scan %T", src)
	}
	return nil
}

func Ptr(d Decimal) *Decimal { return &d }

// Or returns *p, or def when p is nil.
func Or(p *Decimal, def Decimal) Decimal {
	if p == nil {
		return def
	}
	return *p
}
