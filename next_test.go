package weesql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableStatusQuery(t *testing.T) {
	st := tableStatusQuery("users")
	assert.Equal(t, "SHOW TABLE STATUS LIKE ?", st.SQL)
	assert.Equal(t, []any{"users"}, st.Args)

	st = tableStatusQuery("app.user_log")
	assert.Equal(t, "SHOW TABLE STATUS FROM `app` LIKE ?", st.SQL)
	assert.Equal(t, []any{`user\_log`}, st.Args)
}

func TestLikeLiteral(t *testing.T) {
	tests := map[string]string{
		"users":    "users",
		"user_log": `user\_log`,
		"50%_off":  `50\%\_off`,
		`a\b`:      `a\\b`,
	}
	for in, want := range tests {
		assert.Equal(t, want, likeLiteral(in), in)
	}
}
