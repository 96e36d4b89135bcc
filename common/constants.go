package common

const (
	// AppName is the name of the application
	AppName = "scraper-http-service"
)

// Desktop browser identity used for every scraping session
const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	ViewportWidth  = 1920
	ViewportHeight = 1080
)
