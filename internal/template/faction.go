package template

// Faction groups ships that share identification and hostility.
type Faction string

const (
	FactionFederation Faction = "Federation"
	FactionPirates    Faction = "Pirates"
	FactionTraders    Faction = "Traders"
)

var hostilities = map[Faction][]Faction{
	FactionFederation: {FactionPirates},
	FactionPirates:    {FactionFederation, FactionTraders},
	FactionTraders:    {FactionPirates},
}

// HostileTo reports whether f treats other as an enemy.
func (f Faction) HostileTo(other Faction) bool {
	for _, enemy := range hostilities[f] {
		if enemy == other {
			return true
		}
	}
	return false
}
