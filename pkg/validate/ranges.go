package validate

// Bounds is an inclusive expected range for one measure.
type Bounds struct {
	Min float64
	Max float64
}

// Ranges maps a measure name to its expected bounds at one location.
type Ranges map[string]Bounds

// DefaultLocation keys the fallback range set used for locations without an
// explicit entry.
const DefaultLocation = "default"

// DefaultRanges returns the expected ranges for the three pilot sites.
// Agronomist-provided; loc_1 is desert reclamation, loc_3 is delta farmland.
func DefaultRanges() map[string]Ranges {
	return map[string]Ranges{
		"loc_1": {
			"soil_temperature": {Min: 15, Max: 45},
			"soil_humidity":    {Min: 10, Max: 60},
			"water_level":      {Min: 5, Max: 80},
			"nitrogen":         {Min: 10, Max: 60},
			"phosphorus":       {Min: 5, Max: 40},
			"potassium":        {Min: 10, Max: 50},
			"ph":               {Min: 6.0, Max: 8.5},
		},
		"loc_2": {
			"soil_temperature": {Min: 15, Max: 48},
			"soil_humidity":    {Min: 5, Max: 50},
			"water_level":      {Min: 5, Max: 70},
			"nitrogen":         {Min: 10, Max: 60},
			"phosphorus":       {Min: 5, Max: 40},
			"potassium":        {Min: 10, Max: 50},
			"ph":               {Min: 6.5, Max: 8.8},
		},
		"loc_3": {
			"soil_temperature": {Min: 10, Max: 40},
			"soil_humidity":    {Min: 20, Max: 80},
			"water_level":      {Min: 10, Max: 95},
			"nitrogen":         {Min: 20, Max: 80},
			"phosphorus":       {Min: 10, Max: 50},
			"potassium":        {Min: 15, Max: 60},
			"ph":               {Min: 5.5, Max: 8.0},
		},
		DefaultLocation: {
			"soil_temperature": {Min: 0, Max: 55},
			"soil_humidity":    {Min: 0, Max: 100},
			"water_level":      {Min: 0, Max: 100},
			"nitrogen":         {Min: 0, Max: 100},
			"phosphorus":       {Min: 0, Max: 100},
			"potassium":        {Min: 0, Max: 100},
			"ph":               {Min: 3.0, Max: 10.0},
		},
	}
}
