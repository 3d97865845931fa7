package template

import (
	"fmt"
	"math/rand"
)

var designationPrefixes = []string{
	"Aurora", "Bastion", "Corvus", "Dauntless", "Endeavour", "Falcon", "Gallant",
	"Horizon", "Intrepid", "Juno", "Kestrel", "Lancer", "Meridian", "Nomad",
	"Orion", "Pioneer", "Resolute", "Sentinel", "Tempest", "Valiant",
}

// RandomDesignation returns a ship designation such as "Orion-417".
func RandomDesignation(rng *rand.Rand) string {
	prefix := designationPrefixes[rng.Intn(len(designationPrefixes))]
	return fmt.Sprintf("%s-%03d", prefix, rng.Intn(1000))
}
