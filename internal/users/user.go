package users

// User is the canonical local identity record. One row per identity,
// originating from exactly one provider path.
type User struct {
	// UID is globally unique and immutable once assigned. Discord-path
	// rows carry a locally minted id; password-path rows reuse the
	// provider-issued uid.
	UID string

	// Username tracks the upstream provider's display name and is
	// refreshed whenever the two diverge.
	Username string

	// Email is set on the password path only.
	Email string

	// Timezone is set only post-registration, by neither reconciliation
	// path.
	Timezone string

	// ExternalID is the third-party provider's identifier, unique when
	// present. Empty for password-path rows.
	ExternalID string
}
