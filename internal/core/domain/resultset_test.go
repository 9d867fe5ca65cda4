package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultSetLen(t *testing.T) {
	rs := ResultSet{
		ESSID: "testnet",
		Results: []PasswordPMK{
			{Password: "barbarbar"},
			{Password: "foofoofoo"},
		},
	}
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 0, ResultSet{}.Len())
}
