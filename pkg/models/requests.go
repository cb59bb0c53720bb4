package models

// SubmitReadingsRequest is the HTTP batch submission body.
type SubmitReadingsRequest struct {
	Readings []RawReading `json:"readings" validate:"required,min=1,max=10000"`
}

// WarehouseStatsResponse reports fact and dimension row counts.
type WarehouseStatsResponse struct {
	TotalFacts    int                   `json:"total_facts"`
	FactsByStatus map[ReadingStatus]int `json:"facts_by_status"`
	SoilRows      int                   `json:"soil_rows"`
	TimeRows      int                   `json:"time_rows"`
	LocationRows  int                   `json:"location_rows"`
	WeatherRows   int                   `json:"weather_rows"`
}
