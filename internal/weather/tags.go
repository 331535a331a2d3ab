package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadDistrictTags reads the district→weather-site reference table from a
// two-column CSV (headers "distrito" and "weather_tag", any casing). Keys
// are matched exactly and case-sensitively against incident districts, so
// the table must carry districts exactly as the ingestion pipeline writes
// them. A malformed schema is a load-time error, never a silent default.
func LoadDistrictTags(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open district tags: %w", err)
	}
	defer f.Close()

	return parseDistrictTags(f)
}

func parseDistrictTags(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read district tags header: %w", err)
	}

	districtCol, tagCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "distrito":
			districtCol = i
		case "weather_tag":
			tagCol = i
		}
	}
	if districtCol < 0 || tagCol < 0 {
		return nil, fmt.Errorf("district tags CSV must have 'distrito' and 'weather_tag' columns")
	}

	tags := make(map[string]string)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read district tags row: %w", err)
		}
		if districtCol >= len(row) || tagCol >= len(row) {
			continue
		}
		district := strings.TrimSpace(row[districtCol])
		tag := strings.TrimSpace(row[tagCol])
		if district != "" && tag != "" {
			tags[district] = tag
		}
	}
	return tags, nil
}
