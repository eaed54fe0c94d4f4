package dashboard

import (
	"context"
	"time"

	"github.com/isekhard17/academia-sekhard/common/metrics"
	"github.com/isekhard17/academia-sekhard/internal/db"
	"github.com/isekhard17/academia-sekhard/internal/stats"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Read models for the subject averages tree. Only the columns the
// aggregation needs are loaded.
type subjectRow struct {
	bun.BaseModel `bun:"table:asignaturas,alias:a"`

	ID       uuid.UUID    `bun:"id,pk,type:uuid"`
	Name     string       `bun:"nombre"`
	Sections []sectionRow `bun:"rel:has-many,join:id=asignatura_id"`
}

type sectionRow struct {
	bun.BaseModel `bun:"table:secciones,alias:s"`

	ID          uuid.UUID       `bun:"id,pk,type:uuid"`
	SubjectID   uuid.UUID       `bun:"asignatura_id,type:uuid"`
	Evaluations []evaluationRow `bun:"rel:has-many,join:id=seccion_id"`
}

type evaluationRow struct {
	bun.BaseModel `bun:"table:evaluaciones,alias:ev"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid"`
	SectionID uuid.UUID  `bun:"seccion_id,type:uuid"`
	Grades    []gradeRow `bun:"rel:has-many,join:id=evaluacion_id"`
}

type gradeRow struct {
	bun.BaseModel `bun:"table:notas,alias:n"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	EvaluationID uuid.UUID `bun:"evaluacion_id,type:uuid"`
	Score        float64   `bun:"nota"`
}

type Repository interface {
	// EnrollmentCounts returns the enrollment count of every active
	// section, oldest section first.
	EnrollmentCounts(ctx context.Context) ([]stats.SectionCount, error)
	// SubjectGrades loads every subject with its sections, evaluations and
	// grade scores, by nombre.
	SubjectGrades(ctx context.Context) ([]stats.SubjectGrades, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(database *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: database, metrics: m}
}

func (r *repository) EnrollmentCounts(ctx context.Context) ([]stats.SectionCount, error) {
	var rows []struct {
		SectionID uuid.UUID `bun:"seccion_id"`
		Count     int       `bun:"count"`
	}

	start := time.Now()
	err := r.db.NewSelect().
		TableExpr("secciones AS s").
		ColumnExpr("s.id AS seccion_id").
		ColumnExpr("count(i.id) AS count").
		Join("LEFT JOIN inscripciones AS i ON i.seccion_id = s.id").
		Where("s.activo = TRUE").
		GroupExpr("s.id, s.created_at").
		OrderExpr("s.created_at ASC").
		Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "secciones", time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}

	out := make([]stats.SectionCount, len(rows))
	for i, row := range rows {
		out[i] = stats.SectionCount{SectionID: row.SectionID, Count: row.Count}
	}
	return out, nil
}

func (r *repository) SubjectGrades(ctx context.Context) ([]stats.SubjectGrades, error) {
	subjects := make([]subjectRow, 0)

	start := time.Now()
	err := r.db.NewSelect().
		Model(&subjects).
		Column("id", "nombre").
		Relation("Sections", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Column("id", "asignatura_id")
		}).
		Relation("Sections.Evaluations", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Column("id", "seccion_id")
		}).
		Relation("Sections.Evaluations.Grades", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Column("id", "evaluacion_id", "nota")
		}).
		Order("a.nombre ASC").
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "asignaturas", time.Since(start), err)

	if err != nil {
		return nil, db.Classify(err)
	}

	out := make([]stats.SubjectGrades, len(subjects))
	for i, subj := range subjects {
		sg := stats.SubjectGrades{Name: subj.Name, Sections: make([]stats.SectionGrades, len(subj.Sections))}
		for j, sec := range subj.Sections {
			evs := make([]stats.EvaluationGrades, len(sec.Evaluations))
			for k, ev := range sec.Evaluations {
				scores := make([]float64, len(ev.Grades))
				for l, g := range ev.Grades {
					scores[l] = g.Score
				}
				evs[k] = stats.EvaluationGrades{Grades: scores}
			}
			sg.Sections[j] = stats.SectionGrades{Evaluations: evs}
		}
		out[i] = sg
	}
	return out, nil
}
