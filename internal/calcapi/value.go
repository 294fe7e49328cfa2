package calcapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is a remote record identifier. The API is not consistent about ids being numbers or
// strings, so both are accepted. Ids travel through urls and forms, which lose the JSON type, so
// an id in canonical decimal form is written back as a number and any other id as a string.
type ID string

func (id ID) String() string { return string(id) }
func (id ID) IsZero() bool   { return id == "" }

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshal id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Money is an amount in dollars. Balances come as numeric strings from some endpoints.
type Money float64

func (m Money) Float() float64 { return float64(m) }

// Round rounds to whole cents.
func (m Money) Round() Money {
	return Money(math.Round(float64(m)*100) / 100)
}

func (m Money) Sub(o Money) Money {
	return (m - o).Round()
}

// String formats with two decimals, like "85.00".
func (m Money) String() string {
	return strconv.FormatFloat(float64(m.Round()), 'f', 2, 64)
}

// Short formats without trailing zero cents, like "15" or "12.5".
func (m Money) Short() string {
	return strconv.FormatFloat(float64(m), 'f', -1, 64)
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal money: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*m = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse money %q: %w", s, err)
		}
		*m = Money(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal money: %w", err)
	}
	*m = Money(v)
	return nil
}

// ParseMoney parses a user-entered amount. A leading "$" is tolerated.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return Money(v), nil
}
