package retention

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"flowdeck/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// restorableTables maps archive snapshot table names to row prototypes.
// Names absent from this map are ignored by the restore engine, which is
// what tolerates schema drift between old archives and the live schema.
var restorableTables = map[string]any{
	"workflow_runs":                    &domain.WorkflowRun{},
	"workflow_pauses":                  &domain.WorkflowPause{},
	"workflow_pause_reasons":           &domain.WorkflowPauseReason{},
	"workflow_node_executions":         &domain.WorkflowNodeExecution{},
	"workflow_node_execution_offloads": &domain.WorkflowNodeExecutionOffload{},
	"workflow_trigger_logs":            &domain.WorkflowTriggerLog{},
	"workflow_app_logs":                &domain.WorkflowAppLog{},
}

// timestampLayouts are the encodings seen in archive snapshots, most
// specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ArchiveSnapshot is the deserialized form of one archived run: every
// relational row grouped by table name, values as produced by the
// archiver's JSON encoding (timestamps are ISO-8601 strings).
type ArchiveSnapshot struct {
	SchemaVersion string                      `json:"schema_version"`
	Tables        map[string][]map[string]any `json:"tables"`
}

// WorkflowRunRestore re-inserts previously archived rows into the hot
// path. In dry-run mode it validates and counts without writing.
type WorkflowRunRestore struct {
	db     *gorm.DB
	dryRun bool
	logger *logrus.Logger
}

func NewWorkflowRunRestore(db *gorm.DB, dryRun bool, logger *logrus.Logger) *WorkflowRunRestore {
	return &WorkflowRunRestore{db: db, dryRun: dryRun, logger: logger}
}

func (r *WorkflowRunRestore) DryRun() bool {
	return r.dryRun
}

// RestoreSnapshot restores every table in the snapshot and returns the
// total number of rows inserted.
func (r *WorkflowRunRestore) RestoreSnapshot(ctx context.Context, snapshot ArchiveSnapshot) (int, error) {
	total := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for tableName, records := range snapshot.Tables {
			restored, err := r.RestoreTableRecords(tx, tableName, records, snapshot.SchemaVersion)
			if err != nil {
				return err
			}
			total += restored
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// RestoreTableRecords inserts the given field-mappings into tableName and
// returns the number of rows actually inserted. Unknown table names return
// 0 rather than failing.
func (r *WorkflowRunRestore) RestoreTableRecords(session *gorm.DB, tableName string, records []map[string]any, schemaVersion string) (int, error) {
	prototype, ok := restorableTables[tableName]
	if !ok {
		r.logger.WithFields(logrus.Fields{
			"table":          tableName,
			"schema_version": schemaVersion,
		}).Warn("skipping unknown table in archive snapshot")
		return 0, nil
	}
	if len(records) == 0 {
		return 0, nil
	}

	converted := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row, err := convertDatetimeFields(record, prototype)
		if err != nil {
			return 0, fmt.Errorf("restore %s: %w", tableName, err)
		}
		converted = append(converted, row)
	}

	if r.dryRun {
		return len(converted), nil
	}

	result := session.Model(prototype).Create(converted)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// convertDatetimeFields rewrites ISO-8601 string values into time.Time for
// every column the model declares as a timestamp; all other fields pass
// through unchanged.
func convertDatetimeFields(record map[string]any, prototype any) (map[string]any, error) {
	datetimeColumns := timestampColumns(prototype)
	converted := make(map[string]any, len(record))
	for column, value := range record {
		text, isString := value.(string)
		if !isString || !datetimeColumns[column] {
			converted[column] = value
			continue
		}
		parsed, err := parseTimestamp(text)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", column, err)
		}
		converted[column] = parsed
	}
	return converted, nil
}

var timeType = reflect.TypeOf(time.Time{})

func timestampColumns(prototype any) map[string]bool {
	naming := schema.NamingStrategy{}
	columns := make(map[string]bool)
	t := reflect.TypeOf(prototype)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		fieldType := t.Field(i).Type
		if fieldType.Kind() == reflect.Pointer {
			fieldType = fieldType.Elem()
		}
		if fieldType == timeType {
			columns[naming.ColumnName("", t.Field(i).Name)] = true
		}
	}
	return columns
}

func parseTimestamp(text string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", text)
}
