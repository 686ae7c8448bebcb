package idgen

import (
	"testing"

	"github.com/cookieshake/santokit-sub000/pkg/schema"
)

func TestGenerateULIDIsTwentySixChars(t *testing.T) {
	id, err := Generate(schema.IDStrategyULID)
	if err != nil {
		t.Fatalf("Generate(ulid) error: %v", err)
	}
	if len(id) != 26 {
		t.Errorf("ulid length = %d, want 26: %q", len(id), id)
	}
}

func TestGenerateUUIDv4AndV7Differ(t *testing.T) {
	v4, err := Generate(schema.IDStrategyUUIDv4)
	if err != nil {
		t.Fatalf("Generate(uuid_v4) error: %v", err)
	}
	v7, err := Generate(schema.IDStrategyUUIDv7)
	if err != nil {
		t.Fatalf("Generate(uuid_v7) error: %v", err)
	}
	if v4 == v7 {
		t.Errorf("expected distinct uuid_v4/uuid_v7 values")
	}
	if len(v4) != 36 || len(v7) != 36 {
		t.Errorf("expected canonical 36-char UUID strings, got %q / %q", v4, v7)
	}
}

func TestGenerateNanoID(t *testing.T) {
	id, err := Generate(schema.IDStrategyNanoID)
	if err != nil {
		t.Fatalf("Generate(nanoid) error: %v", err)
	}
	if len(id) != defaultNanoIDLength {
		t.Errorf("nanoid length = %d, want %d", len(id), defaultNanoIDLength)
	}
}

func TestGenerateRejectsNonBridgeStrategies(t *testing.T) {
	if _, err := Generate(schema.IDStrategyAutoIncrement); err == nil {
		t.Errorf("expected error generating auto_increment")
	}
	if _, err := Generate(schema.IDStrategyClient); err == nil {
		t.Errorf("expected error generating client")
	}
}

func TestGeneratedValuesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := Generate(schema.IDStrategyULID)
		if err != nil {
			t.Fatalf("Generate(ulid) error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate ulid generated: %s", id)
		}
		seen[id] = true
	}
}
