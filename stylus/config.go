package stylus

// StylusConfig bundles the per-program parameters the worker and wrapper
// need at spawn time: the ABI version the module was compiled against, the
// call-depth ceiling, the ink pricing policy, and whether to run with
// extra tracing hooks enabled.
type StylusConfig struct {
	Version   uint16
	MaxDepth  uint32
	Pricing   PricingConfig
	DebugMode bool
}

// DefaultStylusConfig mirrors StylusConfig::default() from the reference
// implementation: current ABI version, geth's classical 1024 call-depth
// limit, default pricing, debug mode off.
func DefaultStylusConfig() StylusConfig {
	return StylusConfig{
		Version:  1,
		MaxDepth: 1024,
		Pricing:  DefaultPricingConfig(),
	}
}
