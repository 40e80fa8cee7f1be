package ingest

import "strings"

// DetectDelimiter looks at the header line only: semicolon, then tab,
// otherwise comma. A delimiter appearing unquoted inside a header value
// will misparse the file.
func DetectDelimiter(headerLine string) byte {
	if strings.IndexByte(headerLine, ';') >= 0 {
		return ';'
	}
	if strings.IndexByte(headerLine, '\t') >= 0 {
		return '\t'
	}
	return ','
}

// ParseLine splits one line on delim, honouring double-quoted cells and ""
// escapes. An unterminated quote is not an error: whatever was collected is
// returned as the last cell.
func ParseLine(line string, delim byte) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '"' {
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
			continue
		}
		if c == delim && !inQuotes {
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteByte(c)
	}
	return append(out, cur.String())
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func delimiterName(d byte) string {
	switch d {
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	}
	return "comma"
}
