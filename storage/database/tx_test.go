package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/shule/core"
)

func TestMapError(t *testing.T) {
	other := errors.New("other")
	syntaxErr := &pq.Error{Code: "42601"}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil", err: nil, want: nil},
		{name: "no rows", err: errors.Wrap(sql.ErrNoRows, "get"), want: core.ErrNotFound},
		{name: "deadline", err: errors.Wrap(context.DeadlineExceeded, "query"), want: core.ErrTimeout},
		{name: "unique", err: &pq.Error{Code: "23505", Constraint: "subjects_name_key"}, want: core.ErrUniqueViolation},
		{name: "foreign key", err: errors.Wrap(&pq.Error{Code: "23503"}, "insert"), want: core.ErrForeignKeyViolation},
		{name: "statement timeout", err: &pq.Error{Code: "57014"}, want: core.ErrTimeout},
		{name: "other driver error", err: syntaxErr, want: syntaxErr},
		{name: "unrelated", err: other, want: other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Cause(MapError(tt.err)))
		})
	}
}
