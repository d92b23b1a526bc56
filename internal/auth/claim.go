package auth

// Provider path identifiers. Every claim originates from exactly one of
// these, and the user row it reconciles onto keeps that origin for life.
const (
	ProviderDiscord  = "discord"
	ProviderPassword = "passwd"
)

// Claim is a normalized, provider-sourced statement of identity. It
// contains facts only, no decisions: claims are built per authentication
// attempt, handed to the user registry, and discarded. Never persisted.
type Claim struct {
	Provider    string // ProviderDiscord or ProviderPassword
	ExternalID  string // provider-scoped unique identifier for the person
	DisplayName string // provider's current display name
	Email       string // set on the password path only
}
