package instance

import "os"

// GetID returns the sweeper instance identifier or a default value.
func GetID() string {
	if id := os.Getenv("SEQSTAGE_INSTANCE_ID"); id != "" {
		return id
	}
	return "sweeper-0"
}
