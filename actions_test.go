package weesql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturningKey(t *testing.T) {
	insert := `INSERT INTO "users" ("name") VALUES (?)`
	assert.Equal(t, insert+` RETURNING "users_id"`, returningKey(insert, "users"))
	assert.Equal(t, insert+` RETURNING "users_id"`, returningKey(insert, "public.users"))
}
