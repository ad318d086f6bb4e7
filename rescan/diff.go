package rescan

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/stackprobe/scan"
	"github.com/hazyhaar/stackprobe/signature"
)

// diffFields is the comparison order: the six technology categories, then
// the AI provider. Keeps diff output stable across runs.
var diffFields = []string{
	"framework", "hosting", "payments", "auth", "analytics", "support", "aiProvider",
}

func fieldValue(rec *scan.Record, field string) string {
	if field == "aiProvider" {
		return rec.AI.Provider
	}
	if tf := rec.Field(signature.Category(field)); tf != nil {
		return tf.Value
	}
	return ""
}

// DetectChanges compares the technology fields of two scans of the same
// domain. A field absent in the old scan but present in the new one is
// added; present then absent is removed; present in both with different
// values is modified. A nil old record yields an empty diff, so a first
// scan never raises a change event.
func DetectChanges(oldRec, newRec *scan.Record) scan.ChangeDiff {
	var d scan.ChangeDiff
	if oldRec == nil || newRec == nil {
		return d
	}
	for _, field := range diffFields {
		oldVal := fieldValue(oldRec, field)
		newVal := fieldValue(newRec, field)
		switch {
		case oldVal == "" && newVal != "":
			d.Added = append(d.Added, field+": "+newVal)
		case oldVal != "" && newVal == "":
			d.Removed = append(d.Removed, field+": "+oldVal)
		case oldVal != "" && newVal != "" && oldVal != newVal:
			d.Modified = append(d.Modified, scan.FieldChange{Tech: field, From: oldVal, To: newVal})
		}
	}
	return d
}

// Summarize renders a diff as one human-readable line for the change event.
func Summarize(d scan.ChangeDiff) string {
	var parts []string
	for _, a := range d.Added {
		parts = append(parts, "Added: "+a)
	}
	for _, r := range d.Removed {
		parts = append(parts, "Removed: "+r)
	}
	for _, m := range d.Modified {
		parts = append(parts, fmt.Sprintf("Changed %s: %s -> %s", m.Tech, m.From, m.To))
	}
	return strings.Join(parts, "; ")
}
