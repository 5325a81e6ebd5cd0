package stylus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInkGasRoundTrip(t *testing.T) {
	p := DefaultPricingConfig()
	cases := []uint64{0, 1, 100, 1_000_000, 21_000, 30_000_000}
	for _, gas := range cases {
		ink := p.GasToInk(gas)
		require.Equal(t, gas, p.InkToGas(ink), "round trip for gas=%d", gas)
	}
}

func TestInkPriceMonotonic(t *testing.T) {
	p := DefaultPricingConfig()
	require.Less(t, p.GasToInk(100), p.GasToInk(200))
	require.LessOrEqual(t, p.InkToGas(100), p.InkToGas(200))
}
