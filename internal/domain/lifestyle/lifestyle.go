// Package lifestyle defines housing and pets, the possessions that lift a player's mood every tick.
// This package is PURE and must NOT import any infrastructure packages.
package lifestyle

import (
	"github.com/MRamiBalles/ByteLife/internal/domain/reject"
	"github.com/MRamiBalles/ByteLife/internal/domain/resource"
)

// Kind separates homes from pets.
type Kind string

const (
	KindHousing Kind = "HOUSING"
	KindPet     Kind = "PET"
)

// ItemID identifies a lifestyle catalog entry.
type ItemID string

const (
	HousingDorm      ItemID = "DORM"
	HousingApartment ItemID = "APARTMENT"
	HousingLoft      ItemID = "LOFT"
	HousingPenthouse ItemID = "PENTHOUSE"

	PetFish     ItemID = "FISH"
	PetCat      ItemID = "CAT"
	PetDog      ItemID = "DOG"
	PetRobotDog ItemID = "ROBOT_DOG"
)

// Definition provides metadata about a lifestyle entry.
type Definition struct {
	Name        string
	Description string
	Kind        Kind
	Price       int64
	MoodPerTick int64
	PetCapacity int // housing only
	UnlockLevel int
}

// Registry contains all known housing and pets.
var Registry = map[ItemID]Definition{
	HousingDorm: {
		Name:        "Shared Dorm",
		Description: "A bunk and a power strip.",
		Kind:        KindHousing,
		MoodPerTick: 0,
		PetCapacity: 0,
		UnlockLevel: 1,
	},
	HousingApartment: {
		Name:        "Studio Apartment",
		Description: "Small, quiet, yours.",
		Kind:        KindHousing,
		Price:       2000,
		MoodPerTick: 1,
		PetCapacity: 1,
		UnlockLevel: 3,
	},
	HousingLoft: {
		Name:        "Loft",
		Description: "Room for a desk, a rack and a dog.",
		Kind:        KindHousing,
		Price:       15000,
		MoodPerTick: 3,
		PetCapacity: 2,
		UnlockLevel: 10,
	},
	HousingPenthouse: {
		Name:        "Penthouse",
		Description: "The view alone keeps you going.",
		Kind:        KindHousing,
		Price:       120000,
		MoodPerTick: 6,
		PetCapacity: 4,
		UnlockLevel: 25,
	},
	PetFish: {
		Name:        "Goldfish",
		Description: "Low maintenance company.",
		Kind:        KindPet,
		Price:       50,
		MoodPerTick: 1,
		UnlockLevel: 1,
	},
	PetCat: {
		Name:        "Cat",
		Description: "Sleeps on the warm server.",
		Kind:        KindPet,
		Price:       500,
		MoodPerTick: 2,
		UnlockLevel: 3,
	},
	PetDog: {
		Name:        "Dog",
		Description: "Drags you away from the screen.",
		Kind:        KindPet,
		Price:       800,
		MoodPerTick: 3,
		UnlockLevel: 5,
	},
	PetRobotDog: {
		Name:        "Robot Dog",
		Description: "Fetches packets.",
		Kind:        KindPet,
		Price:       10000,
		MoodPerTick: 4,
		UnlockLevel: 15,
	},
}

// Get returns the definition for id.
func Get(id ItemID) (Definition, bool) {
	def, ok := Registry[id]
	return def, ok
}

// Lifestyle is what a player owns: one home and the pets it can hold.
type Lifestyle struct {
	Housing ItemID   `json:"housing"`
	Pets    []ItemID `json:"pets"`
}

// New returns the starting lifestyle.
func New() Lifestyle {
	return Lifestyle{Housing: HousingDorm, Pets: []ItemID{}}
}

// PetCapacity is how many pets the current home holds.
func (l *Lifestyle) PetCapacity() int {
	return Registry[l.Housing].PetCapacity
}

// MoveIn buys a new home. Moving somewhere too small for the current pets is rejected.
func (l *Lifestyle) MoveIn(id ItemID, level int, pool *resource.Pool) error {
	def, err := lookup(id, KindHousing, level)
	if err != nil {
		return err
	}
	if id == l.Housing {
		return reject.State(reject.CodeAlreadyExists, "already living in %s", def.Name)
	}
	if def.PetCapacity < len(l.Pets) {
		return reject.Capacity(reject.CodeInsufficientResource, "%s holds %d pets, player owns %d", def.Name, def.PetCapacity, len(l.Pets))
	}
	if !pool.TrySpendCurrency(def.Price) {
		return reject.Capacity(reject.CodeInsufficientCurrency, "%s costs %d, balance %d", def.Name, def.Price, pool.Currency())
	}
	l.Housing = id
	return nil
}

// Adopt buys a pet if the home has room.
func (l *Lifestyle) Adopt(id ItemID, level int, pool *resource.Pool) error {
	def, err := lookup(id, KindPet, level)
	if err != nil {
		return err
	}
	if len(l.Pets) >= l.PetCapacity() {
		return reject.Capacity(reject.CodeInsufficientResource, "home holds %d pets", l.PetCapacity())
	}
	if !pool.TrySpendCurrency(def.Price) {
		return reject.Capacity(reject.CodeInsufficientCurrency, "%s costs %d, balance %d", def.Name, def.Price, pool.Currency())
	}
	l.Pets = append(l.Pets, id)
	return nil
}

// Rehome gives away one pet of type id.
func (l *Lifestyle) Rehome(id ItemID) error {
	for i, p := range l.Pets {
		if p == id {
			l.Pets = append(l.Pets[:i], l.Pets[i+1:]...)
			return nil
		}
	}
	return reject.State(reject.CodeNotFound, "no pet %s", id)
}

// MoodBonus sums the per-tick mood of the home and every pet.
func (l *Lifestyle) MoodBonus() int64 {
	total := Registry[l.Housing].MoodPerTick
	for _, p := range l.Pets {
		total += Registry[p].MoodPerTick
	}
	return total
}

func lookup(id ItemID, kind Kind, level int) (Definition, error) {
	def, ok := Registry[id]
	if !ok || def.Kind != kind {
		return Definition{}, reject.State(reject.CodeNotFound, "unknown %s %s", kind, id)
	}
	if level < def.UnlockLevel {
		return Definition{}, reject.State(reject.CodeLevelTooLow, "%s unlocks at level %d", def.Name, def.UnlockLevel)
	}
	return def, nil
}
