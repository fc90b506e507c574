// README: Common identity and geographic value objects used across modules.
package types

// ID is an opaque requester or record identity.
type ID string

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}
