package domain

// Storage keys shared by every tab of a profile.
const (
	KeyAccessToken = "access_token"
	KeyUser        = "user"
)

// StorageChange is delivered to every tab of a profile except Source.
// An empty NewValue means the key was removed.
type StorageChange struct {
	Key      string `json:"key"`
	NewValue string `json:"new_value"`
	Source   string `json:"source"`
}

// Removed reports whether the change deleted the key.
func (c StorageChange) Removed() bool {
	return c.NewValue == ""
}
