package parquetread

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ValidateSchema checks that the file carries the columns every dispute
// needs. The quarter may instead come from the file name, so it is not
// required here.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}

	var missing []string
	for _, col := range []string{"provider_name"} {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required column: %s", strings.Join(missing, ", "))
	}

	// Without either outcome or type column the file carries nothing to score.
	if !columns["outcome"] && !columns["dispute_type"] {
		return fmt.Errorf("no outcome or dispute_type column found")
	}
	return nil
}
