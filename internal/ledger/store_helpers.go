package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           string
		jobID        sql.NullString
		state        string
		requestJSON  string
		errorKind    sql.NullString
		errorMessage sql.NullString
		filesJSON    sql.NullString
		failed       int
		cleanedUp    int
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&id,
		&jobID,
		&state,
		&requestJSON,
		&errorKind,
		&errorMessage,
		&filesJSON,
		&failed,
		&cleanedUp,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		JobID:        jobID.String,
		State:        state,
		RequestJSON:  requestJSON,
		ErrorKind:    errorKind.String,
		ErrorMessage: errorMessage.String,
		Failed:       failed,
		CleanedUp:    cleanedUp != 0,
	}
	if filesJSON.Valid && filesJSON.String != "" {
		if err := json.Unmarshal([]byte(filesJSON.String), &run.Files); err != nil {
			return nil, fmt.Errorf("decode files of run %s: %w", id, err)
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		run.UpdatedAt = updated
	}
	return run, nil
}

func requireRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
