package domain

import "time"

// LicenseRecord is one cached federation identity record. Identity is
// stored normalized; FetchedAt and SourceCount describe the refresh the
// record came from and are shared by every record of a snapshot.
type LicenseRecord struct {
	Identity    string    `json:"identity"`
	Name        string    `json:"name"`
	Gender      string    `json:"gender"`
	Club        string    `json:"club"`
	Nationality string    `json:"country"`
	BirthDate   string    `json:"dob,omitempty"`
	LicenseType string    `json:"type,omitempty"`
	EndDate     string    `json:"end_date,omitempty"`
	Valid       bool      `json:"valid"`
	Status      string    `json:"status"`
	FetchedAt   time.Time `json:"fetch_timestamp,omitempty"`
	SourceCount int       `json:"source_count,omitempty"`
}
