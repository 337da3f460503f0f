// Package export renders local leave requests in portable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klauern/permisync/internal/logging"
	"github.com/klauern/permisync/internal/model"
)

// Format represents the output format for exported requests.
type Format string

const (
	// FormatJSON exports requests as JSON.
	FormatJSON Format = "json"
	// FormatYAML exports requests as YAML.
	FormatYAML Format = "yaml"
	// FormatCSV exports requests as CSV with the canonical header.
	FormatCSV Format = "csv"
)

// IsValid returns true if the format is recognized.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatCSV:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// ParseFormat parses a string into a Format.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	if !format.IsValid() {
		return "", fmt.Errorf("unsupported format %q (valid: json, yaml, csv)", s)
	}
	return format, nil
}

// Options configures export behavior.
type Options struct {
	// Format specifies the output format.
	Format Format
	// Pretty enables pretty-printing for JSON/YAML.
	Pretty bool
	// Delegada filters requests by delegate (empty means all).
	Delegada string
	// Estado filters requests by state (empty means all).
	Estado string
}

// DefaultOptions returns the default export options.
func DefaultOptions() Options {
	return Options{
		Format: FormatJSON,
		Pretty: true,
	}
}

// Exporter renders leave-request records to a writer.
type Exporter struct {
	opts Options
}

// New creates a new Exporter with the given options.
func New(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Export writes the given records in the configured format.
func (e *Exporter) Export(records []model.Record, w io.Writer) error {
	defer logging.Timer("export")()

	logging.Debug("starting export",
		slog.String("format", string(e.opts.Format)),
		logging.Count(len(records)),
		logging.Operation("export"),
	)

	filtered := e.filter(records)
	if len(filtered) != len(records) {
		logging.Debug("requests filtered",
			logging.Count(len(filtered)),
			slog.Int("original", len(records)),
		)
	}

	var err error
	switch e.opts.Format {
	case FormatJSON:
		err = e.exportJSON(filtered, w)
	case FormatYAML:
		err = e.exportYAML(filtered, w)
	case FormatCSV:
		err = e.exportCSV(filtered, w)
	default:
		err = fmt.Errorf("unsupported format: %s", e.opts.Format)
	}

	if err != nil {
		logging.Error("export failed",
			slog.String("format", string(e.opts.Format)),
			logging.Err(err),
		)
		return err
	}

	logging.Info("export completed",
		slog.String("format", string(e.opts.Format)),
		logging.Count(len(filtered)),
	)

	return nil
}

// filter applies the delegada and estado filters.
func (e *Exporter) filter(records []model.Record) []model.Record {
	if e.opts.Delegada == "" && e.opts.Estado == "" {
		return records
	}

	var filtered []model.Record
	for _, rec := range records {
		if e.opts.Delegada != "" && !strings.EqualFold(rec.DelegadaUUID(), e.opts.Delegada) {
			continue
		}
		if e.opts.Estado != "" && !strings.EqualFold(model.FormatValue(rec[model.FieldEstado]), e.opts.Estado) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

// exportRequest is the export representation of one record. Fields follow
// the canonical column names so re-imports map cleanly.
type exportRequest struct {
	UUID            string `json:"uuid" yaml:"uuid"`
	DelegadaUUID    string `json:"delegada_uuid" yaml:"delegada_uuid"`
	Fecha           string `json:"fecha" yaml:"fecha"`
	HoraInicio      string `json:"hora_inicio,omitempty" yaml:"hora_inicio,omitempty"`
	HoraFin         string `json:"hora_fin,omitempty" yaml:"hora_fin,omitempty"`
	MinutosTotal    string `json:"minutos_total,omitempty" yaml:"minutos_total,omitempty"`
	JornadaCompleta string `json:"jornada_completa,omitempty" yaml:"jornada_completa,omitempty"`
	Motivo          string `json:"motivo,omitempty" yaml:"motivo,omitempty"`
	Estado          string `json:"estado,omitempty" yaml:"estado,omitempty"`
	CreatedAt       string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func toExportRequest(rec model.Record) exportRequest {
	get := func(field string) string {
		return model.FormatValue(rec[field])
	}
	return exportRequest{
		UUID:            get(model.FieldUUID),
		DelegadaUUID:    get(model.FieldDelegadaUUID),
		Fecha:           get(model.FieldFecha),
		HoraInicio:      get(model.FieldHoraInicio),
		HoraFin:         get(model.FieldHoraFin),
		MinutosTotal:    get(model.FieldMinutosTotal),
		JornadaCompleta: get(model.FieldJornadaCompleta),
		Motivo:          get(model.FieldMotivo),
		Estado:          get(model.FieldEstado),
		CreatedAt:       get(model.FieldCreatedAt),
		UpdatedAt:       get(model.FieldUpdatedAt),
	}
}

func (e *Exporter) exportJSON(records []model.Record, w io.Writer) error {
	exported := make([]exportRequest, len(records))
	for i, rec := range records {
		exported[i] = toExportRequest(rec)
	}

	encoder := json.NewEncoder(w)
	if e.opts.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(exported)
}

func (e *Exporter) exportYAML(records []model.Record, w io.Writer) error {
	exported := make([]exportRequest, len(records))
	for i, rec := range records {
		exported[i] = toExportRequest(rec)
	}

	encoder := yaml.NewEncoder(w)
	if e.opts.Pretty {
		encoder.SetIndent(2)
	}
	if err := encoder.Encode(exported); err != nil {
		_ = encoder.Close()
		return err
	}
	return encoder.Close()
}

func (e *Exporter) exportCSV(records []model.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	header := model.CanonicalHeader()
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := make([]string, len(header))
		for i, field := range header {
			row[i] = model.FormatValue(rec[field])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
