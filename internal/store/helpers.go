package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pettai/pettkeeper/internal/models"
)

// nilIfEmpty returns nil for empty strings so they land as NULL columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// marshalVitals serializes the optional vitals snapshot, nil when absent.
func marshalVitals(v *models.PetVitals) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal vitals snapshot: %w", err)
	}
	return string(b), nil
}

// scanActionRows reads archived action records from a result set.
func scanActionRows(rows *sql.Rows) ([]models.ActionRecord, error) {
	var records []models.ActionRecord
	for rows.Next() {
		var (
			r                         models.ActionRecord
			actionType                string
			consumableID, accessoryID sql.NullString
			hotelTier, errMsg, vitals sql.NullString
		)
		if err := rows.Scan(&actionType, &consumableID, &r.Action.Amount, &accessoryID,
			&hotelTier, &r.Success, &errMsg, &vitals, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan action record: %w", err)
		}
		r.Action.Type = models.ActionType(actionType)
		r.Action.ConsumableID = consumableID.String
		r.Action.AccessoryID = accessoryID.String
		r.Action.HotelTier = hotelTier.String
		r.Error = errMsg.String
		if vitals.Valid && vitals.String != "" {
			var v models.PetVitals
			if err := json.Unmarshal([]byte(vitals.String), &v); err != nil {
				return nil, fmt.Errorf("decode vitals snapshot: %w", err)
			}
			r.Vitals = &v
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
