package research

import "strings"

// ReportSeparator is the horizontal rule between report parts.
const ReportSeparator = "\n\n---\n\n"

// SplitSources splits body at its first Sources header line, the same
// header ConsolidateSources deduplicates under. The header itself belongs to
// neither part.
func SplitSources(body string) (content, sources string, found bool) {
	loc := sourcesHeaderRe.FindStringIndex(body)
	if loc == nil {
		return body, "", false
	}
	content = strings.TrimRight(body[:loc[0]], "\r\n")
	sources = strings.TrimPrefix(body[loc[1]:], "\n")
	return content, sources, true
}

// Finalize assembles the final report: introduction, body and conclusion
// separated by horizontal rules, followed by the body's Sources block when it
// has one. A leading "## Insights" title is dropped from the body.
func Finalize(introduction, body, conclusion string) string {
	content := body
	if trimmed := strings.TrimLeft(content, " \t\r\n"); strings.HasPrefix(trimmed, InsightsMarker) {
		content = strings.TrimLeft(strings.TrimPrefix(trimmed, InsightsMarker), " \t\r\n")
	}
	content, sources, found := SplitSources(content)

	var sb strings.Builder
	sb.WriteString(introduction)
	sb.WriteString(ReportSeparator)
	sb.WriteString(content)
	sb.WriteString(ReportSeparator)
	sb.WriteString(conclusion)
	if found {
		sb.WriteString("\n\n" + SourcesHeader + "\n")
		sb.WriteString(sources)
	}
	return sb.String()
}
