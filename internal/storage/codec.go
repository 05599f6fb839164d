package storage

import (
	"encoding/json"
	"errors"
	"sort"

	"baqec/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current schema and codec versions on a record.
func Stamp(record model.SweepRecord) model.SweepRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeSweep(record model.SweepRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeSweep(data []byte) (model.SweepRecord, error) {
	var record model.SweepRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.SweepRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.SweepRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}

func cloneSweep(record model.SweepRecord) model.SweepRecord {
	record.Points = append([]model.SweepPoint(nil), record.Points...)
	return record
}

// sortNewestFirst orders records by creation time, then id.
func sortNewestFirst(records []model.SweepRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAtUTC == records[j].CreatedAtUTC {
			return records[i].ID < records[j].ID
		}
		return records[i].CreatedAtUTC > records[j].CreatedAtUTC
	})
}
