// Package idgen generates primary key values for the ID strategies the
// Bridge itself is responsible for (ulid, uuid_v4, uuid_v7, nanoid).
// auto_increment and client strategies never reach this package: the
// former is left to Postgres, the latter is the caller's value passed
// straight through.
package idgen

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/oklog/ulid/v2"

	"github.com/cookieshake/santokit-sub000/pkg/schema"
)

// defaultNanoIDLength is the length of every generated nanoid (the usual
// nanoid default); there is no per-table size.
const defaultNanoIDLength = 21

// Generate produces a new primary key value for strategy. It returns an
// error for auto_increment and client, which are not bridge-generated.
func Generate(strategy schema.IDStrategy) (string, error) {
	switch strategy {
	case schema.IDStrategyULID:
		return generateULID(), nil
	case schema.IDStrategyUUIDv4:
		return uuid.NewString(), nil
	case schema.IDStrategyUUIDv7:
		return generateUUIDv7()
	case schema.IDStrategyNanoID:
		return gonanoid.New(defaultNanoIDLength)
	default:
		return "", fmt.Errorf("idgen: strategy %q is not bridge-generated", strategy)
	}
}

var ulidEntropy = ulid.Monotonic(rand.NewChaCha8(entropySeed()), 0)

func entropySeed() [32]byte {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) //nolint:errcheck // crypto/rand.Read never errors on Linux/Darwin/Windows
	return seed
}

func generateULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

func generateUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("idgen: generating uuid_v7: %w", err)
	}
	return id.String(), nil
}
