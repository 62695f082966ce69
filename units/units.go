// Package units converts between wei and display units such as rbtc and gwei.
package units

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var exponents = map[string]int32{
	"wei":    0,
	"kwei":   3,
	"mwei":   6,
	"gwei":   9,
	"szabo":  12,
	"finney": 15,
	"ether":  18,
	"rbtc":   18,
}

// Supported returns the known unit names in sorted order.
func Supported() []string {
	names := make([]string, 0, len(exponents))
	for n := range exponents {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func exponent(unit string) (int32, error) {
	e, ok := exponents[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q, supported: %s", unit, strings.Join(Supported(), ", "))
	}
	return e, nil
}

// ToWei converts a decimal amount of unit into wei. Amounts that would need a
// fractional wei are rejected.
func ToWei(value decimal.Decimal, unit string) (*big.Int, error) {
	e, err := exponent(unit)
	if err != nil {
		return nil, err
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("negative amount %s %s", value, unit)
	}
	wei := value.Shift(e)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%s %s is a fractional amount of wei (%s)", value, unit, wei)
	}
	return wei.BigInt(), nil
}

// ParseToWei parses a decimal string such as "0.5" and converts it to wei.
func ParseToWei(value, unit string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return ToWei(d, unit)
}

// FromWei converts wei into a decimal amount of unit.
func FromWei(wei *big.Int, unit string) (decimal.Decimal, error) {
	e, err := exponent(unit)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromBigInt(wei, -e), nil
}

// ToBaseUnits scales a human token amount by decimals, e.g. for ERC-20.
func ToBaseUnits(value decimal.Decimal, decimals uint8) (*big.Int, error) {
	v := value.Shift(int32(decimals))
	if !v.IsInteger() {
		return nil, fmt.Errorf("%s has more than %d decimals", value, decimals)
	}
	return v.BigInt(), nil
}

// FromBaseUnits scales raw token units down by decimals.
func FromBaseUnits(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
