package db_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/isekhard17/academia-sekhard/internal/apperr"
	"github.com/isekhard17/academia-sekhard/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePGError map[byte]string

func (e fakePGError) Error() string       { return "ERROR: " + e['M'] }
func (e fakePGError) Field(k byte) string { return e[k] }

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

func TestClassify(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		assert.NoError(t, db.Classify(nil))
	})

	t.Run("NoRows_IsNotFound", func(t *testing.T) {
		err := db.Classify(fmt.Errorf("select: %w", sql.ErrNoRows))
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("UniqueViolation_NamesField", func(t *testing.T) {
		pgErr := fakePGError{
			'C': "23505",
			'M': `duplicate key value violates unique constraint "asignaturas_codigo_key"`,
			'D': "Key (codigo)=(TI2024) already exists.",
			'n': "asignaturas_codigo_key",
		}
		err := db.Classify(pgErr)

		e := apperr.As(err)
		require.NotNil(t, e)
		assert.Equal(t, apperr.KindConflict, e.Kind)
		assert.Equal(t, "codigo", e.Field)
		assert.Contains(t, e.Message, "codigo")
		assert.True(t, errors.Is(err, apperr.ErrConflict))
	})

	t.Run("UniqueViolation_Composite", func(t *testing.T) {
		pgErr := fakePGError{
			'C': "23505",
			'D': "Key (seccion_id, alumno_id, fecha)=(a, b, 2025-03-10) already exists.",
		}
		e := apperr.As(db.Classify(pgErr))
		require.NotNil(t, e)
		assert.Equal(t, "seccion_id, alumno_id, fecha", e.Field)
	})

	t.Run("UniqueViolation_FallsBackToConstraint", func(t *testing.T) {
		e := apperr.As(db.Classify(fakePGError{'C': "23505", 'n': "usuarios_email_key"}))
		require.NotNil(t, e)
		assert.Equal(t, "usuarios_email_key", e.Field)
	})

	t.Run("ForeignKey_IsValidation", func(t *testing.T) {
		pgErr := fakePGError{
			'C': "23503",
			'D': `Key (asignatura_id)=(00000000-0000-0000-0000-000000000000) is not present in table "asignaturas".`,
		}
		e := apperr.As(db.Classify(pgErr))
		require.NotNil(t, e)
		assert.Equal(t, apperr.KindValidation, e.Kind)
		require.Len(t, e.Fields, 1)
		assert.Equal(t, "asignatura_id", e.Fields[0].Field)
	})

	t.Run("CheckViolation_IsValidation", func(t *testing.T) {
		e := apperr.As(db.Classify(fakePGError{'C': "23514", 'n': "notas_nota_check", 'M': "violates check"}))
		require.NotNil(t, e)
		assert.Equal(t, apperr.KindValidation, e.Kind)
		assert.Equal(t, "notas_nota_check", e.Fields[0].Field)
	})

	t.Run("UnknownCode_IsUpstream", func(t *testing.T) {
		err := db.Classify(fakePGError{'C': "57014", 'M': "canceling statement"})
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
	})

	t.Run("PlainError_IsUpstream", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := db.Classify(cause)
		assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("AlreadyClassified_PassesThrough", func(t *testing.T) {
		in := apperr.Forbidden("no")
		assert.Same(t, in, db.Classify(in))
	})
}

func TestAffected(t *testing.T) {
	t.Run("ZeroRows_IsNotFound", func(t *testing.T) {
		assert.ErrorIs(t, db.Affected(fakeResult(0), nil), apperr.ErrNotFound)
	})

	t.Run("OneRow_IsOK", func(t *testing.T) {
		assert.NoError(t, db.Affected(fakeResult(1), nil))
	})

	t.Run("ErrorIsClassified", func(t *testing.T) {
		err := db.Affected(nil, fakePGError{'C': "23505", 'D': "Key (email)=(a@b.c) already exists."})
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})
}
