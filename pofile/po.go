// Package pofile reads and writes gettext PO catalogs.
//
// The parser is strict: a line that is neither a comment, a keyword nor a
// continuation of the previous keyword makes the whole catalog invalid.
// Every entry remembers the line of its msgid keyword so that reports can
// point back into the catalog.
package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Entry represents a single message of a catalog.
type Entry struct {
	// TranslatorComments are lines starting with "# ".
	TranslatorComments []string
	// ExtractedComments are lines starting with "#.".
	ExtractedComments []string
	// References are source locations, lines starting with "#:".
	References []string
	// Flags are lines starting with "#," split on commas.
	Flags []string
	// PreviousMsgID is the "#| msgid" of a fuzzy entry.
	PreviousMsgID string

	MsgCtxt      string
	MsgID        string
	MsgIDPlural  string
	MsgStr       string
	MsgStrPlural map[int]string

	// Obsolete marks entries prefixed with "#~".
	Obsolete bool
	// Line is the 1-based line number of the msgid keyword.
	Line int
}

// IsFuzzy reports whether the entry carries the fuzzy flag.
func (e *Entry) IsFuzzy() bool {
	return e.HasFlag("fuzzy")
}

// HasFlag checks if a specific flag is present.
func (e *Entry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// IsTranslated returns true for a non-header, non-fuzzy entry whose every
// translation form is filled in.
func (e *Entry) IsTranslated() bool {
	if e.MsgID == "" || e.IsFuzzy() {
		return false
	}
	if e.MsgIDPlural != "" {
		if len(e.MsgStrPlural) == 0 {
			return false
		}
		for _, v := range e.MsgStrPlural {
			if v == "" {
				return false
			}
		}
		return true
	}
	return e.MsgStr != ""
}

// Translations returns the non-empty translated strings of the entry. A
// plural entry yields its forms in index order.
func (e *Entry) Translations() []string {
	if e.MsgIDPlural == "" {
		if e.MsgStr == "" {
			return nil
		}
		return []string{e.MsgStr}
	}
	var out []string
	for _, idx := range pluralIndices(e.MsgStrPlural) {
		if s := e.MsgStrPlural[idx]; s != "" {
			out = append(out, s)
		}
	}
	return out
}

// File is a parsed catalog.
type File struct {
	// Header is the metadata entry (msgid "").
	Header *Entry
	// Entries are the messages in catalog order, obsolete ones included.
	Entries []*Entry
}

// HeaderField returns a header field value by name.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// Stats returns translation statistics over live entries.
func (f *File) Stats() (total, translated, fuzzy, untranslated int) {
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		total++
		switch {
		case e.IsFuzzy():
			fuzzy++
		case e.IsTranslated():
			translated++
		default:
			untranslated++
		}
	}
	return
}

// ParseError describes a structurally invalid catalog.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Parse reads a catalog from r.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var current *Entry
	var lastField string // keyword that continuation lines append to
	lineNum := 0

	fail := func(format string, args ...any) error {
		return &ParseError{Line: lineNum, Msg: fmt.Sprintf(format, args...)}
	}

	flush := func() {
		if current == nil {
			return
		}
		switch {
		case current.Line == 0:
			// comment-only block
		case current.MsgID == "" && !current.Obsolete && f.Header == nil && len(f.Entries) == 0:
			f.Header = current
		default:
			f.Entries = append(f.Entries, current)
		}
		current = nil
		lastField = ""
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		obsolete := strings.HasPrefix(line, "#~")
		if obsolete {
			line = strings.TrimLeft(line[2:], " ")
		}
		if current != nil && startsEntry(line, lastField) {
			flush()
		}
		if current == nil {
			current = &Entry{MsgStrPlural: make(map[int]string)}
		}

		if obsolete {
			current.Obsolete = true
			if line == "" || strings.HasPrefix(line, "|") {
				continue
			}
		}

		if strings.HasPrefix(line, "#") {
			parseComment(current, line)
			continue
		}

		keyword, rest := splitKeyword(line)
		if keyword == "" {
			if !strings.HasPrefix(line, `"`) {
				return nil, fail("unexpected content: %s", line)
			}
			if lastField == "" {
				return nil, fail("continuation line without a keyword")
			}
			val, err := unquote(line)
			if err != nil {
				return nil, fail("%v", err)
			}
			appendField(current, lastField, val)
			continue
		}

		val, err := unquote(rest)
		if err != nil {
			return nil, fail("%s: %v", keyword, err)
		}
		switch {
		case keyword == "msgctxt":
			current.MsgCtxt = val
		case keyword == "msgid":
			current.MsgID = val
			current.Line = lineNum
		case keyword == "msgid_plural":
			current.MsgIDPlural = val
		case keyword == "msgstr":
			current.MsgStr = val
		case strings.HasPrefix(keyword, "msgstr["):
			idx, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(keyword, "msgstr["), "]"))
			if err != nil || !strings.HasSuffix(keyword, "]") || idx < 0 {
				return nil, fail("invalid plural index: %s", keyword)
			}
			current.MsgStrPlural[idx] = val
		default:
			return nil, fail("unknown keyword %q", keyword)
		}
		lastField = keyword
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PO file: %w", err)
	}
	flush()

	if f.Header == nil {
		f.Header = &Entry{MsgStrPlural: make(map[int]string)}
	}
	return f, nil
}

// ParseFile reads a catalog from disk.
func ParseFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	f, err := Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func parseComment(e *Entry, line string) {
	switch {
	case strings.HasPrefix(line, "#:"):
		e.References = append(e.References, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "#,"):
		for _, flag := range strings.Split(line[2:], ",") {
			if flag = strings.TrimSpace(flag); flag != "" {
				e.Flags = append(e.Flags, flag)
			}
		}
	case strings.HasPrefix(line, "#."):
		e.ExtractedComments = append(e.ExtractedComments, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "#|"):
		prev := strings.TrimSpace(line[2:])
		if strings.HasPrefix(prev, "msgid ") {
			if s, err := unquote(strings.TrimPrefix(prev, "msgid ")); err == nil {
				e.PreviousMsgID = s
			}
		}
	default:
		e.TranslatorComments = append(e.TranslatorComments, strings.TrimPrefix(line[1:], " "))
	}
}

// splitKeyword splits `msgid "x"` into ("msgid", `"x"`). It returns an empty
// keyword for continuation lines.
// startsEntry reports whether line opens a new entry even though no blank
// line separates it from the one being read. line has any "#~" prefix
// already removed.
func startsEntry(line, lastField string) bool {
	if lastField == "" {
		return false
	}
	keyword, _ := splitKeyword(line)
	switch {
	case keyword == "msgid":
		return lastField != "msgctxt"
	case !strings.HasPrefix(lastField, "msgstr"):
		return false
	case keyword == "msgctxt":
		return true
	default:
		return strings.HasPrefix(line, "#") || strings.HasPrefix(line, "|")
	}
}

func splitKeyword(line string) (string, string) {
	if !strings.HasPrefix(line, "msg") {
		return "", line
	}
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], line[idx+1:]
}

func appendField(e *Entry, field, val string) {
	switch {
	case field == "msgctxt":
		e.MsgCtxt += val
	case field == "msgid":
		e.MsgID += val
	case field == "msgid_plural":
		e.MsgIDPlural += val
	case field == "msgstr":
		e.MsgStr += val
	case strings.HasPrefix(field, "msgstr["):
		idx, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(field, "msgstr["), "]"))
		e.MsgStrPlural[idx] += val
	}
}

// Write serializes the catalog.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	first := true
	if f.Header != nil && (f.Header.Line > 0 || f.Header.MsgStr != "") {
		writeEntry(bw, f.Header)
		first = false
	}
	for _, e := range f.Entries {
		if !first {
			bw.WriteByte('\n')
		}
		writeEntry(bw, e)
		first = false
	}
	return bw.Flush()
}

// WriteFile serializes the catalog to disk.
func (f *File) WriteFile(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeEntry(w *bufio.Writer, e *Entry) {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}

	for _, c := range e.TranslatorComments {
		if c == "" {
			w.WriteString("#\n")
			continue
		}
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}
	if e.PreviousMsgID != "" {
		fmt.Fprintf(w, "#| msgid %s\n", quote(e.PreviousMsgID))
	}

	if e.MsgCtxt != "" {
		writeQuotedField(w, prefix, "msgctxt", e.MsgCtxt)
	}
	writeQuotedField(w, prefix, "msgid", e.MsgID)
	if e.MsgIDPlural != "" {
		writeQuotedField(w, prefix, "msgid_plural", e.MsgIDPlural)
	}

	if e.MsgIDPlural != "" && len(e.MsgStrPlural) > 0 {
		for _, idx := range pluralIndices(e.MsgStrPlural) {
			writeQuotedField(w, prefix, fmt.Sprintf("msgstr[%d]", idx), e.MsgStrPlural[idx])
		}
	} else {
		writeQuotedField(w, prefix, "msgstr", e.MsgStr)
	}
}

// writeQuotedField writes a field, splitting multiline values after each
// newline with an empty first line.
func writeQuotedField(w *bufio.Writer, prefix, field, value string) {
	if !strings.Contains(strings.TrimSuffix(value, "\n"), "\n") {
		fmt.Fprintf(w, "%s%s %s\n", prefix, field, quote(value))
		return
	}

	fmt.Fprintf(w, "%s%s \"\"\n", prefix, field)
	parts := strings.SplitAfter(value, "\n")
	for _, part := range parts {
		if part != "" {
			fmt.Fprintf(w, "%s%s\n", prefix, quote(part))
		}
	}
}

func pluralIndices(m map[int]string) []int {
	indices := make([]int, 0, len(m))
	for idx := range m {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return `"` + s + `"`
}

// unquote decodes a PO string literal.
func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("malformed string literal %s", s)
	}
	s = s[1 : len(s)-1]

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			return "", fmt.Errorf("unescaped quote in string literal")
		}
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			return "", fmt.Errorf("dangling escape in string literal")
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}
