package storage

import (
	"encoding/json"
	"fmt"
	"math"

	"hypertune/internal/table"
)

const CurrentSchemaVersion = 1

func EncodeStudy(record StudyRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeStudy(data []byte) (StudyRecord, error) {
	var record StudyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return StudyRecord{}, err
	}
	if record.SchemaVersion != CurrentSchemaVersion {
		return StudyRecord{}, fmt.Errorf("unsupported study schema version %d", record.SchemaVersion)
	}
	return record, nil
}

// EncodeObservation serializes a result row. JSON has no NaN literal, so
// NaN cells are stored as null and restored on decode.
func EncodeObservation(row table.Row) ([]byte, error) {
	clean := make(map[string]any, len(row))
	for k, v := range row {
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			clean[k] = nil
			continue
		}
		clean[k] = v
	}
	return json.Marshal(clean)
}

func DecodeObservation(data []byte) (table.Row, error) {
	var row table.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	if v, ok := row[table.ColObjective]; ok && v == nil {
		row[table.ColObjective] = math.NaN()
	}
	return row, nil
}
