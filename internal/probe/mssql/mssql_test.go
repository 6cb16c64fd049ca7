package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDSN(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"mssql scheme", "mssql://sa:pass@db:1433?database=app", "sqlserver://sa:pass@db:1433?database=app"},
		{"sqlserver scheme untouched", "sqlserver://sa:pass@db:1433", "sqlserver://sa:pass@db:1433"},
		{"ado string untouched", "server=db;user id=sa;password=pass", "server=db;user id=sa;password=pass"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizeDSN(tc.in))
		})
	}
}
