package models

import (
	"time"
)

// ReadingStatus is the validation status carried by a reading and persisted
// on its fact row.
type ReadingStatus string

const (
	ReadingStatusValid   ReadingStatus = "VALID"
	ReadingStatusWarning ReadingStatus = "WARNING"
	ReadingStatusInvalid ReadingStatus = "INVALID"
)

// RawReading is an ingested sensor+weather reading before validation.
// All measures are pointers: nothing is guaranteed present yet.
type RawReading struct {
	EventID            string     `json:"event_id"`
	Timestamp          *time.Time `json:"timestamp"`
	LocID              string     `json:"loc_id"`
	Latitude           *float64   `json:"latitude"`
	Longitude          *float64   `json:"longitude"`
	PH                 *float64   `json:"ph"`
	Nitrogen           *float64   `json:"nitrogen"`
	Phosphorus         *float64   `json:"phosphorus"`
	Potassium          *float64   `json:"potassium"`
	SoilTemperature    *float64   `json:"soil_temperature"`
	SoilHumidity       *float64   `json:"soil_humidity"`
	WaterLevel         *float64   `json:"water_level"`
	WeatherTemperature *float64   `json:"weather_temperature"`
	WeatherHumidity    *float64   `json:"weather_humidity"`
	WindSpeed          *float64   `json:"wind_speed"`
	WindDirection      *float64   `json:"wind_direction"`
	Rain               *float64   `json:"rain"`
	SurfacePressure    *float64   `json:"surface_pressure"`
}

// ValidReading is a RawReading that passed validation. Every field required
// by a dimension natural key is guaranteed non-nil.
type ValidReading struct {
	RawReading
	Status   ReadingStatus `json:"validation_status"`
	Warnings []string      `json:"warnings,omitempty"`
}

// InvalidReading is a RawReading that failed validation together with the
// reasons it was rejected. It never enters the warehouse.
type InvalidReading struct {
	RawReading
	Reasons []string `json:"reasons"`
}

// ReadingEnvelope is the nested wire shape emitted by field devices. The
// engine flattens it into a RawReading before validation.
type ReadingEnvelope struct {
	EventID   string     `json:"event_id"`
	Timestamp *time.Time `json:"timestamp"`
	LocID     string     `json:"loc_id"`
	Location  *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"location,omitempty"`
	SensorData *struct {
		Temperature *float64 `json:"temperature"`
		Humidity    *float64 `json:"humidity"`
		WaterLevel  *float64 `json:"water_level"`
		Nitrogen    *float64 `json:"nitrogen"`
		Phosphorus  *float64 `json:"phosphorus"`
		Potassium   *float64 `json:"potassium"`
		PH          *float64 `json:"ph"`
	} `json:"sensor_data,omitempty"`
	WeatherData *struct {
		Temperature2m       *float64 `json:"temperature_2m"`
		RelativeHumidity2m  *float64 `json:"relative_humidity_2m"`
		WindSpeed10m        *float64 `json:"wind_speed_10m"`
		WindDirection10m    *float64 `json:"wind_direction_10m"`
		Rain                *float64 `json:"rain"`
		SurfacePressure     *float64 `json:"surface_pressure"`
	} `json:"weather_data,omitempty"`
}

// Flatten converts the nested device envelope into the flat RawReading the
// validator works on. Sensor temperature/humidity map to the soil measures.
func (e *ReadingEnvelope) Flatten() RawReading {
	r := RawReading{
		EventID:   e.EventID,
		Timestamp: e.Timestamp,
		LocID:     e.LocID,
	}
	if e.Location != nil {
		r.Latitude = e.Location.Latitude
		r.Longitude = e.Location.Longitude
	}
	if e.SensorData != nil {
		r.SoilTemperature = e.SensorData.Temperature
		r.SoilHumidity = e.SensorData.Humidity
		r.WaterLevel = e.SensorData.WaterLevel
		r.Nitrogen = e.SensorData.Nitrogen
		r.Phosphorus = e.SensorData.Phosphorus
		r.Potassium = e.SensorData.Potassium
		r.PH = e.SensorData.PH
	}
	if e.WeatherData != nil {
		r.WeatherTemperature = e.WeatherData.Temperature2m
		r.WeatherHumidity = e.WeatherData.RelativeHumidity2m
		r.WindSpeed = e.WeatherData.WindSpeed10m
		r.WindDirection = e.WeatherData.WindDirection10m
		r.Rain = e.WeatherData.Rain
		r.SurfacePressure = e.WeatherData.SurfacePressure
	}
	return r
}
