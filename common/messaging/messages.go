package messaging

// Constants for NATS streams
const (
	ProgressStreamName = "SCRAPER_PROGRESS"
)
