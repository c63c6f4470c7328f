package domain

// Credentials holds the Apple developer credentials the gateway signs
// developer tokens with. Loaded once from configuration and treated as
// read-only for the life of the process.
type Credentials struct {
	TeamID     string `json:"teamId"`
	KeyID      string `json:"keyId"`
	PrivateKey string `json:"-"` // PEM-encoded private key, never serialized
}

// Configuration statuses reported by ConfigStatus.
const (
	ConfigOK           = "ok"
	ConfigUnconfigured = "unconfigured"
	ConfigInvalid      = "invalid"
)

// ConfigStatus is the derived, per-request view of credential health.
// Unconfigured means fields are absent (benign first-run state); invalid
// means fields are present but malformed.
type ConfigStatus struct {
	OK      bool     `json:"ok"`
	Status  string   `json:"status"`
	Missing []string `json:"missing"`
	Errors  []string `json:"errors"`
}
