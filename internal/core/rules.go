package core

// rules.go holds the numeric rules applied by the append. The same tables
// generate the SQL in transform.go, so the Go functions here describe
// exactly what the warehouse computes.

import (
	"fmt"
	"math/big"
	"strings"
)

// MoneyScale is the number of decimal places monetary columns are rounded to.
const MoneyScale = 2

// CycleRule maps an order_type marker to a subscription length.
type CycleRule struct {
	Marker string // case-sensitive substring
	Months int
}

// CycleRules is checked in order; the first marker found wins.
var CycleRules = []CycleRule{
	{Marker: "3m", Months: 3},
	{Marker: "6m", Months: 6},
	{Marker: "9m", Months: 9},
}

// CycleMonthsDefault is used when no marker matches, including a missing order_type.
const CycleMonthsDefault = 0

// CycleMonths derives the subscription cycle length from an order type.
//
//	CycleMonths("cycle_3m") == 3
//	CycleMonths("monthly")  == 0
func CycleMonths(orderType string) int {
	for _, rule := range CycleRules {
		if strings.Contains(orderType, rule.Marker) {
			return rule.Months
		}
	}
	return CycleMonthsDefault
}

// RoundHalfUp rounds a decimal string to places digits, with ties going
// away from zero, and returns it formatted with exactly places digits.
//
//	RoundHalfUp("10.005", 2) == "10.01"
//	RoundHalfUp("-2.5", 0)   == "-3"
func RoundHalfUp(value string, places int) (string, error) {
	if places < 0 {
		return "", fmt.Errorf("negative scale %d", places)
	}

	r, ok := new(big.Rat).SetString(strings.TrimSpace(value))
	if !ok {
		return "", fmt.Errorf("invalid number %q", value)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))

	abs := new(big.Int).Abs(r.Num())
	q, rem := new(big.Int).QuoRem(abs, r.Denom(), new(big.Int))
	if rem.Lsh(rem, 1).Cmp(r.Denom()) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if r.Sign() < 0 {
		q.Neg(q)
	}

	return new(big.Rat).SetFrac(q, scale).FloatString(places), nil
}

// RoundMoney rounds a monetary value to MoneyScale places.
// An empty value stays empty, matching a NULL passing through ROUND.
func RoundMoney(value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return RoundHalfUp(value, MoneyScale)
}
