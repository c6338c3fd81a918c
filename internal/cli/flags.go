package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/devlongs/arb-recorder/pkg/types"
)

// decimalValue is a pflag.Value parsing exact decimals
type decimalValue struct {
	d *decimal.Decimal
}

func newDecimalValue(def decimal.Decimal, p *decimal.Decimal) *decimalValue {
	*p = def
	return &decimalValue{d: p}
}

func (v *decimalValue) String() string {
	if v.d == nil {
		return "0"
	}
	return v.d.String()
}

func (v *decimalValue) Set(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("not a number: %q", s)
	}
	*v.d = d
	return nil
}

func (v *decimalValue) Type() string {
	return "decimal"
}

// typeValue is a pflag.Value restricted to the known arbitrage types
type typeValue struct {
	t *types.ArbitrageType
}

func newTypeValue(def types.ArbitrageType, p *types.ArbitrageType) *typeValue {
	*p = def
	return &typeValue{t: p}
}

func (v *typeValue) String() string {
	if v.t == nil {
		return ""
	}
	return v.t.String()
}

func (v *typeValue) Set(s string) error {
	t, err := types.ParseArbitrageType(s)
	if err != nil {
		return err
	}
	*v.t = t
	return nil
}

func (v *typeValue) Type() string {
	return "type"
}

// typeNames lists the accepted --type values for help output
func typeNames() string {
	names := make([]string, len(types.ArbitrageTypes))
	for i, t := range types.ArbitrageTypes {
		names[i] = t.String()
	}
	return strings.Join(names, "|")
}
