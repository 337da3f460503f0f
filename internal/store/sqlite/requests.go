package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/klauern/permisync/internal/model"
	syncer "github.com/klauern/permisync/internal/sync"
)

const requestColumns = `uuid, delegada_uuid, fecha, hora_inicio, hora_fin,
	minutos_total, jornada_completa, motivo, estado, created_at, updated_at`

// ChangedSince returns rows whose updated_at sorts strictly after the
// watermark, or every row when the watermark is empty. ISO-8601 text
// timestamps make the comparison a plain string ordering.
func (s *Store) ChangedSince(ctx context.Context, watermark string) ([]model.Record, error) {
	query := "SELECT " + requestColumns + " FROM solicitudes ORDER BY uuid"
	args := []any{}
	if watermark != "" {
		query = "SELECT " + requestColumns + " FROM solicitudes WHERE updated_at > ? ORDER BY uuid"
		args = append(args, watermark)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query changed rows: %v", syncer.ErrIO, err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		rec, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate changed rows: %v", syncer.ErrIO, err)
	}
	return out, nil
}

// ByUUID returns one row, reporting presence separately from errors.
func (s *Store) ByUUID(ctx context.Context, id string) (model.Record, bool, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM solicitudes WHERE uuid = ?", id)

	rec, err := scanRequest(row)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec, true, nil
}

// Insert adds a new row.
func (s *Store) Insert(ctx context.Context, rec model.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO solicitudes (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		requestArgs(rec)...)
	if err != nil {
		return fmt.Errorf("%w: insert %s: %v", syncer.ErrIO, rec.UUID(), err)
	}
	return nil
}

// Update replaces an existing row's payload.
func (s *Store) Update(ctx context.Context, rec model.Record) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE solicitudes SET
			delegada_uuid = ?, fecha = ?, hora_inicio = ?, hora_fin = ?,
			minutos_total = ?, jornada_completa = ?, motivo = ?, estado = ?,
			created_at = ?, updated_at = ?
		WHERE uuid = ?`,
		append(requestArgs(rec)[1:], rec.UUID())...)
	if err != nil {
		return fmt.Errorf("%w: update %s: %v", syncer.ErrIO, rec.UUID(), err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("update %s: row not found", rec.UUID())
	}
	return nil
}

// PendingCount counts rows changed since the watermark, or every row when
// no sync has succeeded yet. Feeds the pending-changes alert.
func (s *Store) PendingCount(ctx context.Context, watermark string) (int, error) {
	query := "SELECT COUNT(*) FROM solicitudes"
	args := []any{}
	if watermark != "" {
		query += " WHERE updated_at > ?"
		args = append(args, watermark)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count pending rows: %v", syncer.ErrIO, err)
	}
	return count, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(sc scanner) (model.Record, error) {
	var (
		uuid, delegada, fecha, estado, createdAt, updatedAt string
		horaInicio, horaFin, motivo                         sql.NullString
		minutos                                             sql.NullInt64
		jornada                                             bool
	)
	err := sc.Scan(&uuid, &delegada, &fecha, &horaInicio, &horaFin,
		&minutos, &jornada, &motivo, &estado, &createdAt, &updatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scan row: %v", syncer.ErrIO, err)
	}

	rec := model.Record{
		model.FieldUUID:            uuid,
		model.FieldDelegadaUUID:    delegada,
		model.FieldFecha:           fecha,
		model.FieldJornadaCompleta: jornada,
		model.FieldEstado:          estado,
		model.FieldCreatedAt:       createdAt,
		model.FieldUpdatedAt:       updatedAt,
	}
	if horaInicio.Valid {
		rec[model.FieldHoraInicio] = horaInicio.String
	}
	if horaFin.Valid {
		rec[model.FieldHoraFin] = horaFin.String
	}
	if minutos.Valid {
		rec[model.FieldMinutosTotal] = int(minutos.Int64)
	}
	if motivo.Valid {
		rec[model.FieldMotivo] = motivo.String
	}
	return rec, nil
}

func requestArgs(rec model.Record) []any {
	return []any{
		rec.UUID(),
		rec.DelegadaUUID(),
		model.FormatValue(rec[model.FieldFecha]),
		nullable(rec[model.FieldHoraInicio]),
		nullable(rec[model.FieldHoraFin]),
		nullable(rec[model.FieldMinutosTotal]),
		isTruthy(rec[model.FieldJornadaCompleta]),
		nullable(rec[model.FieldMotivo]),
		model.FormatValue(rec[model.FieldEstado]),
		model.FormatValue(rec[model.FieldCreatedAt]),
		model.FormatValue(rec[model.FieldUpdatedAt]),
	}
}

// nullable maps absent or empty record fields to SQL NULL.
func nullable(v any) any {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

// isTruthy mirrors the worksheet's loose full-day encodings.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch t {
		case "true", "1", "si", "sí", "x", "X", "COMPLETO", "completo":
			return true
		}
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
