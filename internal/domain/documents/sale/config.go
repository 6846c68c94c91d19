package sale

import "flowdesk/internal/core/numerator"

// NumberConfig produces SALE-{yyyymm}-{0001}, one series per owner per month.
var NumberConfig = numerator.Config{
	Prefix:       "SALE",
	PeriodLayout: numerator.PeriodMonth,
	PadWidth:     4,
}

// receiptPrefix precedes the unix-millisecond receipt number.
const receiptPrefix = "RCP-"
