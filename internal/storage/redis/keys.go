package redis

import "fmt"

// Key prefix for all lobby data
const keyPrefix = "lobbyhub"

// rosterKey returns the Redis key for the ordered roster snapshot
func rosterKey() string {
	return fmt.Sprintf("%s:roster", keyPrefix)
}

// playersKey returns the Redis key for the player id -> player HASH
func playersKey() string {
	return fmt.Sprintf("%s:players", keyPrefix)
}
