package research

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	// sourcesHeaderRe matches a "## Sources" or "### Sources" line, in a
	// single line or a whole document.
	sourcesHeaderRe = regexp.MustCompile(`(?m)^#{2,3}[ \t]+Sources[ \t]*\r?$`)
	anyHeaderRe     = regexp.MustCompile(`^#{1,6}\s`)
	sourceEntryRe   = regexp.MustCompile(`^(\s*)\[(\d+)\](\s*)(.*?)(\s*)$`)
	citationRe      = regexp.MustCompile(`\[(\d+)\]`)
)

// ConsolidateSources removes duplicate entries from the first Sources block
// of a markdown document and renumbers the remaining entries in order of
// first appearance. Bracketed citations elsewhere in the document are
// rewritten to the new numbers. A document without a Sources block is
// returned unchanged. The result is a fixed point: consolidating it again
// changes nothing.
func ConsolidateSources(doc string) string {
	lines := strings.Split(doc, "\n")
	start := -1
	for i, line := range lines {
		if sourcesHeaderRe.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return doc
	}
	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if anyHeaderRe.MatchString(lines[i]) {
			end = i
			break
		}
	}

	renumber := make(map[string]string)
	seen := make(map[string]string)
	block := make([]string, 0, end-start-1)
	next := 1
	for _, line := range lines[start+1 : end] {
		m := sourceEntryRe.FindStringSubmatch(line)
		if m == nil || strings.TrimSpace(m[4]) == "" {
			block = append(block, line)
			continue
		}
		oldNum, source := m[2], m[4]
		key := normalizeSource(source)
		if kept, dup := seen[key]; dup {
			if _, mapped := renumber[oldNum]; !mapped {
				renumber[oldNum] = kept
			}
			continue
		}
		newNum := strconv.Itoa(next)
		next++
		seen[key] = newNum
		if _, mapped := renumber[oldNum]; !mapped {
			renumber[oldNum] = newNum
		}
		block = append(block, m[1]+"["+newNum+"]"+m[3]+source+m[5])
	}

	rewrite := func(s string) string {
		return citationRe.ReplaceAllStringFunc(s, func(c string) string {
			if n, ok := renumber[c[1:len(c)-1]]; ok {
				return "[" + n + "]"
			}
			return c
		})
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines[:start+1] {
		out = append(out, rewrite(line))
	}
	out = append(out, block...)
	for _, line := range lines[end:] {
		out = append(out, rewrite(line))
	}
	return strings.Join(out, "\n")
}

// normalizeSource returns the deduplication key of a source entry.
func normalizeSource(source string) string {
	s := strings.TrimSpace(source)
	s = strings.TrimRight(s, " .,;")
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		s = s[1 : len(s)-1]
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if n, err := NormalizeURL(s); err == nil {
			return n
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// NormalizeURL canonicalizes a URL for deduplication: scheme and host are
// lowercased, a leading "www." is dropped, as are the fragment, tracking
// query parameters and a trailing slash.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	parsed.Fragment = ""
	if parsed.RawQuery != "" {
		q := parsed.Query()
		for _, param := range []string{
			"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
			"fbclid", "gclid", "msclkid", "ref", "source",
		} {
			q.Del(param)
		}
		parsed.RawQuery = q.Encode()
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return parsed.String(), nil
}
