package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DBConnError     = 3
	CopyError       = 4
	SummaryError    = 5
	PartialSuccess  = 6
	ServeError      = 7
)
