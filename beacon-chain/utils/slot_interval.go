package utils

import (
	"time"
)

// CurrentSlot returns slot number based on the genesis timestamp.
func CurrentSlot(genesisTime time.Time, slotDuration uint64, now time.Time) uint64 {
	if slotDuration == 0 || now.Before(genesisTime) {
		return 0
	}
	secondsSinceGenesis := uint64(now.Sub(genesisTime).Seconds())
	return secondsSinceGenesis / slotDuration
}
