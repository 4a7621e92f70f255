package protocol

const (
	// Metadata related prefixes
	PrefixMeta       = "meta:"       // Metadata key
	PrefixMetaSchema = "meta:schema" // Store schema version

	// Connection related prefixes
	// conn:Family:Address = ChainConnection json
	PrefixConnection = "conn:"

	// Cost basis related prefixes
	// basis:Family:Address:Symbol = cost basis in fiat (decimal string)
	PrefixCostBasis = "basis:"
)

// SchemaVersion is bumped whenever a persisted value changes shape.
const SchemaVersion = "1"
