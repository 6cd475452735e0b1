package card

import "testing"

func testIndex() *Index {
	return NewIndex([]Card{
		{Name: "Gardevoir ex", Type: "PStage2"},
		{Name: "Ralts", Type: "PBasic"},
		{Name: "Ultra Ball", Type: "Item"},
		{Name: "Professor's Research", Type: "Supporter"},
		{Name: "Basic Psychic Energy", Type: ""},
		{Name: "Gardevoir ex", Type: "Item"}, // duplicate, first typing wins
	})
}

func TestIndexSize(t *testing.T) {
	idx := testIndex()
	if idx.Size() != 5 {
		t.Errorf("expected 5 distinct names, got %d", idx.Size())
	}
}

func TestIndexIsValidName(t *testing.T) {
	idx := testIndex()

	valid := []string{"Gardevoir ex", "gardevoir EX", "Professor’s Research", "ultra  ball"}
	for _, name := range valid {
		if !idx.IsValidName(name) {
			t.Errorf("expected %q to be a valid card name", name)
		}
	}

	if idx.IsValidName("City League Osaka 2026") {
		t.Error("tournament title should not be a valid card name")
	}
}

func TestEmptyIndexAcceptsEverything(t *testing.T) {
	idx := NewIndex(nil)
	if !idx.IsValidName("Anything At All") {
		t.Error("empty index should accept every name")
	}
}

func TestIndexCategoryFor(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		name     string
		expected Category
		found    bool
	}{
		{"Gardevoir ex", CategoryPokemon, true},
		{"Ultra Ball", CategoryTrainer, true},
		{"Basic Psychic Energy", CategoryEnergy, true},
		{"Unknown Card", CategoryPokemon, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, found := idx.CategoryFor(tt.name)
			if cat != tt.expected || found != tt.found {
				t.Errorf("CategoryFor(%q) = (%v, %v), expected (%v, %v)",
					tt.name, cat, found, tt.expected, tt.found)
			}
		})
	}
}

func TestIsTrainerOrEnergy(t *testing.T) {
	idx := testIndex()

	if !idx.IsTrainerOrEnergy("Ultra Ball") {
		t.Error("Ultra Ball should be a trainer")
	}
	if !idx.IsTrainerOrEnergy("Basic Psychic Energy") {
		t.Error("Basic Psychic Energy should be an energy")
	}
	if idx.IsTrainerOrEnergy("Ralts") {
		t.Error("Ralts should not be a trainer or energy")
	}
	if idx.IsTrainerOrEnergy("Unknown Card") {
		t.Error("unknown names count as Pokemon")
	}
}
