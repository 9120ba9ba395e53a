package session

import "time"

// Config controls session token issuance.
type Config struct {
	Secret   string        `env:"DAYBOOK_SESSION_SECRET"`
	Lifetime time.Duration `env:"DAYBOOK_SESSION_TTL" envDefault:"168h"`
}
