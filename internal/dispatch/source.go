// internal/dispatch/source.go
package dispatch

import (
    "encoding/csv"
    "fmt"
    "io"
    "log"
    "os"
    "path/filepath"
    "strings"

    appErrors "github.com/unclebandit/bulksms-backend/internal/errors"
    "github.com/unclebandit/bulksms-backend/internal/model"
)

// Entry is one raw recipient produced by a source: a candidate phone
// (not yet normalized) plus the template context for personalization.
type Entry struct {
    Phone   string
    Context map[string]string
}

// Source is a lazy, single-pass stream of entries. Next returns io.EOF
// once the source is exhausted. Rows a source drops (short rows, empty
// phone cells) are counted in Skipped, not surfaced as errors.
type Source interface {
    Next() (*Entry, error)
    Skipped() int
    Close() error
}

// GroupReader is the slice of the contact repository the list source
// needs: active-group filtering plus chunked entry reads.
type GroupReader interface {
    ActiveGroupIDs(ids []int) ([]int, error)
    ActiveEntriesChunk(groupID, afterID, limit int) ([]model.ContactEntry, error)
}

// Resolver expands a campaign's configured contact source into a
// Source stream. One resolver instance is shared by all runs.
type Resolver struct {
    Groups     GroupReader
    StorageDir string // root directory for uploaded CSV files
    ChunkSize  int    // rows per contact-entry query, defaults to 1000
}

const defaultChunkSize = 1000

func (r *Resolver) Resolve(c *model.Campaign) (Source, error) {
    switch c.ContactType {
    case model.SourceManual:
        return newManualSource(c.RecipientContacts), nil
    case model.SourceList:
        chunk := r.ChunkSize
        if chunk <= 0 {
            chunk = defaultChunkSize
        }
        ids, err := r.Groups.ActiveGroupIDs(c.ContactGroupIDs)
        if err != nil {
            return nil, err
        }
        return &listSource{groups: r.Groups, groupIDs: ids, chunk: chunk}, nil
    case model.SourceCsv:
        if strings.TrimSpace(c.CsvFilePath) == "" {
            return nil, appErrors.NewInvalidSource("csv campaign has no file path")
        }
        return openCsvSource(filepath.Join(r.StorageDir, c.CsvFilePath))
    default:
        return nil, appErrors.NewInvalidSource(fmt.Sprintf("unknown contact type %q", c.ContactType))
    }
}

// ---------------------- manual ----------------------

type manualSource struct {
    tokens []string
    pos    int
}

func newManualSource(raw string) *manualSource {
    var tokens []string
    for _, tok := range strings.Split(raw, ",") {
        tok = strings.TrimSpace(tok)
        if tok != "" {
            tokens = append(tokens, tok)
        }
    }
    return &manualSource{tokens: tokens}
}

func (s *manualSource) Next() (*Entry, error) {
    if s.pos >= len(s.tokens) {
        return nil, io.EOF
    }
    tok := s.tokens[s.pos]
    s.pos++
    return &Entry{Phone: tok}, nil
}

func (s *manualSource) Skipped() int { return 0 }
func (s *manualSource) Close() error { return nil }

// ---------------------- list ----------------------

// listSource streams the active entries of each active group, one
// chunked query at a time, so a group with hundreds of thousands of
// rows never sits fully in memory.
type listSource struct {
    groups   GroupReader
    groupIDs []int
    chunk    int

    buf     []model.ContactEntry
    bufPos  int
    lastID  int
    current int // index into groupIDs
    done    bool
    skipped int
}

func (s *listSource) Next() (*Entry, error) {
    for {
        if s.done {
            return nil, io.EOF
        }
        if s.bufPos < len(s.buf) {
            e := s.buf[s.bufPos]
            s.bufPos++
            s.lastID = e.ID
            if strings.TrimSpace(e.Telephone) == "" {
                s.skipped++
                continue
            }
            return &Entry{Phone: e.Telephone}, nil
        }
        if err := s.fill(); err != nil {
            return nil, err
        }
    }
}

func (s *listSource) fill() error {
    for {
        if s.current >= len(s.groupIDs) {
            s.done = true
            return nil
        }
        entries, err := s.groups.ActiveEntriesChunk(s.groupIDs[s.current], s.lastID, s.chunk)
        if err != nil {
            return err
        }
        if len(entries) == 0 {
            // group exhausted, move to the next one
            s.current++
            s.lastID = 0
            continue
        }
        s.buf = entries
        s.bufPos = 0
        return nil
    }
}

func (s *listSource) Skipped() int { return s.skipped }
func (s *listSource) Close() error { return nil }

// ---------------------- csv ----------------------

// phoneColumns is the case-insensitive whitelist of header names that
// can carry the recipient phone number.
var phoneColumns = []string{
    "contact",
    "contacts",
    "telephone",
    "mobile",
    "mobile number",
    "phone",
    "phone number",
}

type csvSource struct {
    file     *os.File
    reader   *csv.Reader
    headers  []string
    phoneIdx int
    skipped  int
}

func openCsvSource(path string) (*csvSource, error) {
    f, err := os.Open(path)
    if err != nil {
        if os.IsNotExist(err) {
            return nil, appErrors.NewSourceFileMissing(path)
        }
        return nil, err
    }

    reader := csv.NewReader(f)
    reader.FieldsPerRecord = -1 // short/long rows handled per-record

    headers, err := reader.Read()
    if err != nil {
        f.Close()
        if err == io.EOF {
            return nil, appErrors.NewNoPhoneColumn(nil)
        }
        return nil, err
    }

    phoneIdx := -1
    for i, h := range headers {
        name := strings.ToLower(strings.TrimSpace(h))
        for _, valid := range phoneColumns {
            if name == valid {
                phoneIdx = i
                break
            }
        }
        if phoneIdx >= 0 {
            break
        }
    }
    if phoneIdx < 0 {
        f.Close()
        return nil, appErrors.NewNoPhoneColumn(headers)
    }

    log.Printf("CSV source %s: phone column %q at index %d", filepath.Base(path), headers[phoneIdx], phoneIdx)

    return &csvSource{file: f, reader: reader, headers: headers, phoneIdx: phoneIdx}, nil
}

func (s *csvSource) Next() (*Entry, error) {
    for {
        row, err := s.reader.Read()
        if err == io.EOF {
            return nil, io.EOF
        }
        if err != nil {
            // malformed line, skip and keep going
            s.skipped++
            continue
        }

        if len(row) <= s.phoneIdx || len(row) < len(s.headers) {
            s.skipped++
            continue
        }

        candidate := strings.TrimSpace(row[s.phoneIdx])
        if candidate == "" {
            s.skipped++
            continue
        }

        ctx := make(map[string]string, len(s.headers))
        for i, h := range s.headers {
            if i < len(row) {
                ctx[h] = row[i]
            }
        }
        return &Entry{Phone: candidate, Context: ctx}, nil
    }
}

func (s *csvSource) Skipped() int { return s.skipped }
func (s *csvSource) Close() error { return s.file.Close() }
