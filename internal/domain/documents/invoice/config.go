package invoice

import "flowdesk/internal/core/numerator"

// NumberConfig produces INV-{year}-{0001}, one series per owner per year.
var NumberConfig = numerator.Config{
	Prefix:       "INV",
	PeriodLayout: numerator.PeriodYear,
	PadWidth:     4,
}

// overdueBatchSize bounds one RefreshOverdue pass.
const overdueBatchSize = 500
