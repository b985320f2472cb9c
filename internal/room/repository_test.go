package room

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	// pgx surfaces driver errors wrapped; classification must see through.
	badID := fmt.Errorf("scan: %w", &pgconn.PgError{Code: pgInvalidTextRepresentation})
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation})

	assert.True(t, isBadID(badID), "malformed UUID bind reads as not-found")
	assert.True(t, isUniqueViolation(dup))
	assert.False(t, isBadID(dup))
	assert.False(t, isUniqueViolation(badID))
	assert.False(t, isBadID(errors.New("connection reset")))
	assert.False(t, isBadID(nil))
}
