package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// Money is an amount in minor units (cents). It travels as a JSON number with two decimals
// and is stored in NUMERIC(10,2) columns.
type Money int64

// MaxMoney is the largest amount a NUMERIC(10,2) column holds.
const MaxMoney Money = 99999999_99

// MoneyFromFloat rounds `f` (major units) to the nearest cent.
func MoneyFromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

func (m Money) Float() float64 { return float64(m) / 100 }

func (m Money) String() string {
	return strconv.FormatFloat(m.Float(), 'f', 2, 64)
}

func (m Money) Mul(n int) Money { return m * Money(n) }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "money must be a number")
	}
	f, err := n.Float64()
	if err != nil {
		return errors.Wrap(err, "money must be a number")
	}
	// keeps the cents within int64
	if math.Abs(f) > 1e15 {
		return errors.Errorf("money out of range: %s", n)
	}
	*m = MoneyFromFloat(f)
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = 0
	case int64:
		*m = Money(v * 100)
	case float64:
		*m = MoneyFromFloat(v)
	case []byte:
		return m.scanString(string(v))
	case string:
		return m.scanString(v)
	default:
		return fmt.Errorf("core.Money: cannot scan %T", src)
	}
	return nil
}

func (m *Money) scanString(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "core.Money: cannot scan %q", s)
	}
	*m = MoneyFromFloat(f)
	return nil
}
