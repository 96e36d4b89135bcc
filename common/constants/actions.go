package constants

// ActionType defines the type of action a message represents.
type ActionType string

const (
	// RunScraperAction triggers a run of a stored configuration for a target.
	RunScraperAction ActionType = "scraper:run"
	// RunAllScrapersAction triggers runs for every active target.
	RunAllScrapersAction ActionType = "scraper:run_all"
)
