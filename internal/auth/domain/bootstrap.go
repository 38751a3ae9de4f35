package domain

// BootstrapData describes the first account seeded into an empty store.
type BootstrapData struct {
	AdminEmail    string
	AdminPassword string // generated and logged once when empty
	MFAEnabled    bool
	MFAMethod     MFAMethod
}
