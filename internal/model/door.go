// Package model defines domain entities for the application.
package model

// Door is a physical entry point a PIN code can be scoped to.
type Door struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultDoors is the directory seeded at startup.
func DefaultDoors() []Door {
	return []Door{
		{ID: "main", Name: "Main Entrance"},
		{ID: "garage", Name: "Garage"},
		{ID: "spa", Name: "Spa"},
		{ID: "gym", Name: "Gym"},
	}
}
