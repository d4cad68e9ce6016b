package model

// OptionSide is the side of an option contract.
type OptionSide string

const (
	SideCall OptionSide = "call"
	SidePut  OptionSide = "put"
)

// Instrument is a single listed option contract as reported by the
// market-data provider. It is a snapshot valid for the current cycle only.
type Instrument struct {
	Currency     string
	ExpirationMs int64 // expiration timestamp, epoch millis
	Side         OptionSide
	Strike       float64
	Name         string
}

// MarketQuote is a book summary for one instrument. MarkIV is nil when the
// provider did not report an implied volatility.
type MarketQuote struct {
	InstrumentName string
	MarkIV         *float64
}
