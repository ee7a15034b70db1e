package storage

// Keys of the settings table.
const (
	KeyOriginOverride = "origin_override"
)
