package pipeline

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/carenotes/extract"
)

// entityTables maps entity types to their table names, in schema order.
var entityTableOrder = []string{
	extract.EntityShiftNote,
	extract.EntityIncidentReport,
	extract.EntityIncidentInvestigation,
}

var entityTables = map[string]string{
	extract.EntityShiftNote:             "shift_notes",
	extract.EntityIncidentReport:        "incident_reports",
	extract.EntityIncidentInvestigation: "incident_investigations",
}

const statusSchema = `
CREATE TABLE IF NOT EXISTS processed_entities (
    raw_message_id  INTEGER PRIMARY KEY,
    entity_type     TEXT,
    entity_id       INTEGER,
    status          TEXT NOT NULL,
    error           TEXT,
    processed_at    TEXT DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY(raw_message_id) REFERENCES raw_messages(id) ON DELETE CASCADE
);
`

// Schema returns the extraction DDL: the status table plus one entity table
// per entity type. Entity columns are derived from the extractor mapping
// tables, so adding a field mapping adds its column here too.
func Schema() string {
	var sb strings.Builder
	sb.WriteString(statusSchema)
	byEntity := extract.EntityMappings()
	for _, entityType := range entityTableOrder {
		sb.WriteString(entityDDL(entityTables[entityType], byEntity[entityType]))
	}
	return sb.String()
}

func entityDDL(table string, mappings []extract.FieldMapping) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nCREATE TABLE IF NOT EXISTS %s (\n", table)
	sb.WriteString("    id              INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	sb.WriteString("    raw_message_id  INTEGER UNIQUE NOT NULL,\n")
	for _, m := range mappings {
		fmt.Fprintf(&sb, "    %s %s,\n", m.Key, columnType(m.Type))
	}
	sb.WriteString("    additional_fields TEXT,\n")
	sb.WriteString("    created_at      TEXT DEFAULT CURRENT_TIMESTAMP,\n")
	sb.WriteString("    FOREIGN KEY(raw_message_id) REFERENCES raw_messages(id) ON DELETE CASCADE\n")
	sb.WriteString(");\n")
	return sb.String()
}

// columnType picks the SQLite affinity for a value type. Booleans persist as
// tri-state integers (0, 1, NULL) and list values as JSON text; both are a
// contract with the reporting layer.
func columnType(t extract.ValueType) string {
	switch t {
	case extract.TypeInt, extract.TypeBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}
