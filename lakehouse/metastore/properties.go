package metastore

import "encoding/json"

// propertiesToJSONB/propertiesFromJSONB store the key/value property map as
// JSONB rather than as a composite array column type: pgx would need a
// registered composite codec for that type per connection, which buys
// nothing here since nothing queries into individual property elements at
// the SQL level (the property_get UDF family operates on the
// dictionary-encoded Parquet column, not this table). encoding/json is
// stdlib, but there's no third-party JSON library available anywhere to
// prefer over it for this narrow a job.
func propertiesToJSONB(props map[string]string) []byte {
	if len(props) == 0 {
		return []byte("{}")
	}
	b, _ := json.Marshal(props)
	return b
}

func propertiesFromJSONB(b []byte) map[string]string {
	if len(b) == 0 {
		return nil
	}
	var out map[string]string
	_ = json.Unmarshal(b, &out)
	return out
}
