package config

import "os"

// Credentials are the per-call values needed to reach the vendor endpoint.
type Credentials struct {
	GroupID string
	APIKey  string
	IsPro   bool
}

// Source supplies credentials. Implementations must be safe for concurrent use.
type Source interface {
	Credentials() (Credentials, error)
}

// Static is a Source that always returns the same credentials.
type Static Credentials

// Credentials implements Source.
func (s Static) Credentials() (Credentials, error) {
	return Credentials(s), nil
}

// Env is a Source reading MINIMAX_GROUP_ID, MINIMAX_API_KEY and MINIMAX_IS_PRO
// on every call.
type Env struct{}

// Credentials implements Source.
func (Env) Credentials() (Credentials, error) {
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	return cfg.Credentials(), nil
}

// compile-time checks
var (
	_ Source = Static{}
	_ Source = Env{}
	_ Source = (*FileSource)(nil)
)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
