package types

import (
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatFieldTable renders fields with their collected values as a markdown table.
// Fields without a value are shown as "-".
func FormatFieldTable(fields []FieldInfo, values map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Name", "Value")
	for _, field := range fields {
		value, ok := values[field.Name]
		if !ok || value == "" {
			value = "-"
		}
		_ = table.Append(field.DisplayName, field.Name, value)
	}
	_ = table.Render()
	return buf.String()
}

// FormatFieldList renders field names as a bullet list, one per line.
func FormatFieldList(fields []FieldInfo) string {
	var sb strings.Builder
	for _, field := range fields {
		sb.WriteString("- ")
		sb.WriteString(field.Name)
		if field.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(field.Description)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
