package model

// Plaza is a shopping center whose lot can be rented by the month.
type Plaza struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	City      string `json:"city" yaml:"city"`
	Hours     string `json:"hours" yaml:"hours"`
	Spots     int    `json:"spots" yaml:"spots"`
	Available int    `json:"available" yaml:"available"`
	Image     string `json:"image,omitempty" yaml:"image"`
	// Live marks the lot watched by the occupancy sensors; its Available
	// count follows the realtime snapshot.
	Live bool `json:"live" yaml:"live"`
}
