package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Treasurer(t *testing.T) {
	assert.False(t, (&User{}).Treasurer(), "NULL means false")
	assert.False(t, (&User{IsTreasurer: sql.NullBool{Bool: false, Valid: true}}).Treasurer())
	assert.True(t, (&User{IsTreasurer: sql.NullBool{Bool: true, Valid: true}}).Treasurer())
	assert.False(t, (&User{IsTreasurer: sql.NullBool{Bool: true, Valid: false}}).Treasurer())
}
