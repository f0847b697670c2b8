package models

// Preferences holds the per-user reading preferences returned by the API.
// The client treats them as opaque apart from merging on update.
type Preferences struct {
	Theme         string   `json:"theme,omitempty"`
	FontScale     float64  `json:"fontScale,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	NarrationOn   bool     `json:"narrationOn,omitempty"`
	BedtimeHour   int      `json:"bedtimeHour,omitempty"`
	BedtimeMinute int      `json:"bedtimeMinute,omitempty"`
}

// UserProfile is the last-known authenticated user as returned by the API.
type UserProfile struct {
	ID               string       `json:"id"`
	Email            string       `json:"email,omitempty"`
	Name             string       `json:"name,omitempty"`
	MobileNumber     string       `json:"mobileNumber,omitempty"`
	IsGuest          bool         `json:"isGuest"`
	DeviceID         string       `json:"deviceId,omitempty"`
	UpgradedFromGuest bool        `json:"upgradedFromGuest,omitempty"`
	Preferences      *Preferences `json:"preferences,omitempty"`
}

// ProfileUpdate carries a partial profile for merge-style updates.
// Nil fields are left untouched.
type ProfileUpdate struct {
	Email        *string      `json:"email,omitempty"`
	Name         *string      `json:"name,omitempty"`
	MobileNumber *string      `json:"mobileNumber,omitempty"`
	Preferences  *Preferences `json:"preferences,omitempty"`
}
