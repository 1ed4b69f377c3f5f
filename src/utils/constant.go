package utils

// -----------------------------------------------------------------------------

// Defaults shared by the config layer and the command-line tools.
const (
	DefaultControlHost    = "localhost"
	DefaultControlPort    = 12346
	DefaultGrpcPort       = 50051
	DefaultViewerPort     = 8050
	DefaultInstrument     = "AAPL"
	DefaultInitialBalance = 10000.0
	DefaultTradeAmount    = 10.0
	DefaultTickSeconds    = 10
	DefaultWaitSeconds    = 30
	DefaultIndicatorSpan  = 20
	DefaultHistoryStart   = "2023-01-01"
	DefaultMIC            = "xnys"
)
