package stylus

// PricingConfig converts between EVM gas and Stylus ink, the WASM
// execution engine's finer-grained internal metering unit.
type PricingConfig struct {
	// InkPrice is how much ink one unit of gas buys. The real pricing
	// model tunes this per chain upgrade; a fixed constant is enough for
	// a core that treats metering as an opaque, swappable policy.
	InkPrice uint64
}

// DefaultPricingConfig returns the pricing the teacher's worker uses when
// no chain-specific override is supplied.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{InkPrice: 10_000}
}

// GasToInk converts a gas amount to its ink equivalent at this price.
func (p PricingConfig) GasToInk(gas uint64) uint64 {
	return gas * p.InkPrice
}

// InkToGas converts an ink amount back to gas. Because GasToInk is a pure
// multiply by InkPrice, InkToGas(GasToInk(g)) == g exactly for any g whose
// product did not overflow uint64 — the round-trip invariant the worker's
// gas accounting depends on.
func (p PricingConfig) InkToGas(ink uint64) uint64 {
	return ink / p.InkPrice
}
