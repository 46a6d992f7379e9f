package pocketlint

import "strconv"

// Settings persist as key/value rows so each preference can be written
// independently, matching how the mobile client stores them.
const (
	settingSortOrder     = "sortOrder"
	settingTextDetection = "textDetection"
	settingItemDetection = "itemDetection"
	settingSaveLocation  = "saveLocation"
	settingItemSize      = "itemSize"
)

// Settings returns the user's persisted settings, with defaults for any
// key the user has never written.
func (s *RecordStore) Settings(userID string) (Settings, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings WHERE user_id = ?`, userID)
	if err != nil {
		return Settings{}, err
	}
	defer rows.Close()

	set := DefaultSettings()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, err
		}
		switch key {
		case settingSortOrder:
			if value == string(OldestFirst) {
				set.SortOrder = OldestFirst
			} else {
				set.SortOrder = NewestFirst
			}
		case settingTextDetection:
			set.TextDetection = value == "true"
		case settingItemDetection:
			set.ItemDetection = value == "true"
		case settingSaveLocation:
			set.SaveLocation = value == "true"
		case settingItemSize:
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				set.ItemSize = n
			}
		}
	}
	return set, rows.Err()
}

// SaveSettings writes all of the user's settings.
func (s *RecordStore) SaveSettings(userID string, set Settings) error {
	if set.SortOrder != OldestFirst {
		set.SortOrder = NewestFirst
	}
	pairs := map[string]string{
		settingSortOrder:     string(set.SortOrder),
		settingTextDetection: strconv.FormatBool(set.TextDetection),
		settingItemDetection: strconv.FormatBool(set.ItemDetection),
		settingSaveLocation:  strconv.FormatBool(set.SaveLocation),
		settingItemSize:      strconv.Itoa(set.ItemSize),
	}
	for key, value := range pairs {
		if _, err := s.db.Exec(`INSERT OR REPLACE INTO settings (user_id, key, value) VALUES (?, ?, ?)`,
			userID, key, value); err != nil {
			return err
		}
	}
	return nil
}
