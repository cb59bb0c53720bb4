package models

import "time"

// SoilDimension is one distinct soil chemistry profile. KeyHash is the
// canonical fixed-precision encoding of (ph, nitrogen, phosphorus,
// potassium) and is unique; stored values are the rounded canonical values.
type SoilDimension struct {
	SoilKey    int64     `json:"soil_key" db:"soil_key"`
	KeyHash    string    `json:"key_hash" db:"key_hash"`
	PH         float64   `json:"ph" db:"ph"`
	Nitrogen   float64   `json:"nitrogen" db:"nitrogen"`
	Phosphorus float64   `json:"phosphorus" db:"phosphorus"`
	Potassium  float64   `json:"potassium" db:"potassium"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// TimeDimension is one minute of warehouse time. FullDate is the
// minute-truncated timestamp and the primary key; the remaining columns are
// derived from it at insert and never recomputed.
type TimeDimension struct {
	FullDate time.Time `json:"full_date" db:"full_date"`
	Year     int       `json:"year" db:"year"`
	Month    int       `json:"month" db:"month"`
	Day      int       `json:"day" db:"day"`
	Hour     int       `json:"hour" db:"hour"`
	Minute   int       `json:"minute" db:"minute"`
}

// LocationDimension is one distinct (loc_id, latitude, longitude) site.
type LocationDimension struct {
	LocationKey int64     `json:"location_key" db:"location_key"`
	KeyHash     string    `json:"key_hash" db:"key_hash"`
	LocID       string    `json:"loc_id" db:"loc_id"`
	Latitude    float64   `json:"latitude" db:"latitude"`
	Longitude   float64   `json:"longitude" db:"longitude"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// WeatherDimension is one distinct ambient weather tuple.
type WeatherDimension struct {
	WeatherKey         int64     `json:"weather_key" db:"weather_key"`
	KeyHash            string    `json:"key_hash" db:"key_hash"`
	WeatherTemperature float64   `json:"weather_temperature" db:"weather_temperature"`
	WeatherHumidity    float64   `json:"weather_humidity" db:"weather_humidity"`
	WindSpeed          float64   `json:"wind_speed" db:"wind_speed"`
	WindDirection      float64   `json:"wind_direction" db:"wind_direction"`
	Rain               float64   `json:"rain" db:"rain"`
	SurfacePressure    float64   `json:"surface_pressure" db:"surface_pressure"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// FactSensorReading is one loaded reading. EvtID is the natural identity of
// the fact and is unique; rows are immutable once inserted.
type FactSensorReading struct {
	FactID           int64         `json:"fact_id" db:"fact_id"`
	EvtID            string        `json:"evt_id" db:"evt_id"`
	LocationKey      int64         `json:"location_key" db:"location_key"`
	WeatherKey       int64         `json:"weather_key" db:"weather_key"`
	SoilKey          int64         `json:"soil_key" db:"soil_key"`
	FullDate         time.Time     `json:"full_date" db:"full_date"`
	SoilTemperature  *float64      `json:"soil_temperature" db:"soil_temperature"`
	SoilHumidity     *float64      `json:"soil_humidity" db:"soil_humidity"`
	WaterLevel       *float64      `json:"water_level" db:"water_level"`
	ValidationStatus ReadingStatus `json:"validation_status" db:"validation_status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}
