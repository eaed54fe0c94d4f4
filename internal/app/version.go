package app

const ServiceName = "academia-api"

// Set via -ldflags at build time:
//
//	go build -ldflags="-X 'github.com/isekhard17/academia-sekhard/internal/app.Version=1.0.0'"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
