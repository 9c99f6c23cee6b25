// Package db provides SQLite persistence for orientation readings.
package db

// Reading is one accelerometer sample. ID is assigned by the store on insert
// and is zero for readings that have not been stored yet.
type Reading struct {
	ID int64   `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}
