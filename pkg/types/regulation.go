// Package types defines the tabular records that flow between the
// extraction and classification stages.
package types

// Column names of the extracted regulation table.
const (
	ColumnSectionNumber = "SECTNO"
	ColumnSubject       = "SUBJECT"
	ColumnText          = "TEXT"
)

// Column names of the classified match table.
const (
	ColumnMatchSubject = "CFRSubject"
	ColumnSentence     = "Original_sentence"
	ColumnMatchedLabel = "Matched_Label"
	ColumnMatchedText  = "Matched_Text"
)

// Table is a rectangular dataset that can be persisted by the output writers.
type Table interface {
	// Header returns the column names in output order.
	Header() []string

	// Len returns the number of data rows.
	Len() int

	// Row returns the string cells of row index, aligned with Header.
	Row(index int) []string
}

// RegulationRecord is one regulatory section extracted from a volume.
type RegulationRecord struct {
	SectionNumber string `json:"SECTNO"`
	Subject       string `json:"SUBJECT"`
	Text          string `json:"TEXT"`
}

// RegulationTable is an ordered sequence of records, one row per SECTION.
// Rows keep insertion order and are never deduplicated.
type RegulationTable []RegulationRecord

func (table RegulationTable) Header() []string {
	return []string{ColumnSectionNumber, ColumnSubject, ColumnText}
}

func (table RegulationTable) Len() int { return len(table) }

func (table RegulationTable) Row(index int) []string {
	record := table[index]
	return []string{record.SectionNumber, record.Subject, record.Text}
}

// WithSectionSuffix returns a copy of the table with suffix appended to
// every section number. An empty suffix returns the table unchanged.
func (table RegulationTable) WithSectionSuffix(suffix string) RegulationTable {
	if suffix == "" {
		return table
	}

	suffixed := make(RegulationTable, len(table))
	for index, record := range table {
		record.SectionNumber += suffix
		suffixed[index] = record
	}
	return suffixed
}

// DeonticMatch is one classified sentence. SectionNumber and Subject are
// copied from the RegulationRecord the sentence came from.
type DeonticMatch struct {
	SectionNumber string `json:"SECTNO"`
	Subject       string `json:"CFRSubject"`
	Sentence      string `json:"Original_sentence"`
	Label         string `json:"Matched_Label"`
	MatchedText   string `json:"Matched_Text"`
}

// MatchTable is the ordered output of the classification stage: row order
// of the source table, then sentence order within each row.
type MatchTable []DeonticMatch

func (table MatchTable) Header() []string {
	return []string{
		ColumnSectionNumber,
		ColumnMatchSubject,
		ColumnSentence,
		ColumnMatchedLabel,
		ColumnMatchedText,
	}
}

func (table MatchTable) Len() int { return len(table) }

func (table MatchTable) Row(index int) []string {
	match := table[index]
	return []string{match.SectionNumber, match.Subject, match.Sentence, match.Label, match.MatchedText}
}

// CountByLabel tallies matches per label.
func (table MatchTable) CountByLabel() map[string]int {
	counts := make(map[string]int)
	for _, match := range table {
		counts[match.Label]++
	}
	return counts
}
