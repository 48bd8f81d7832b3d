// Package cfr extracts section records from Code of Federal Regulations
// XML volumes.
//
// CFR XML from govinfo uses uppercase tags. Every <SECTION> element, at any
// depth, becomes one record built from its <SECTNO>, <SUBJECT> and <P>
// descendants.
package cfr

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/coolbeans/shamroq/pkg/types"
)

// CFR element names.
const (
	TagSection       = "SECTION"
	TagSectionNumber = "SECTNO"
	TagSubject       = "SUBJECT"
	TagParagraph     = "P"
)

// ErrParse is returned when a volume is not well-formed enough to decode.
var ErrParse = errors.New("failed to parse CFR XML")

// ParseVolume parses a CFR XML document and returns one record per
// <SECTION> element in document order.
func ParseVolume(reader io.Reader) ([]types.RegulationRecord, error) {
	document := etree.NewDocument()
	document.ReadSettings.Permissive = true

	if _, err := document.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	root := document.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: document has no root element", ErrParse)
	}

	sections := findDescendants(root, TagSection)
	records := make([]types.RegulationRecord, 0, len(sections))
	for _, section := range sections {
		records = append(records, sectionRecord(section))
	}

	return records, nil
}

// ParseFile opens and parses a single volume.
func ParseFile(path string) ([]types.RegulationRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume %s: %w", path, err)
	}
	defer file.Close()

	records, err := ParseVolume(file)
	if err != nil {
		return nil, fmt.Errorf("volume %s: %w", path, err)
	}
	return records, nil
}

// sectionRecord builds the record for one <SECTION>. Missing children
// leave the corresponding field empty.
func sectionRecord(section *etree.Element) types.RegulationRecord {
	return types.RegulationRecord{
		SectionNumber: joinLeadingText(findDescendants(section, TagSectionNumber)),
		Subject:       joinLeadingText(findDescendants(section, TagSubject)),
		Text:          paragraphText(findDescendants(section, TagParagraph)),
	}
}

// joinLeadingText joins the leading text of each element with ", ".
// Elements that open with a child element or are empty are skipped.
func joinLeadingText(elements []*etree.Element) string {
	var values []string
	for _, element := range elements {
		if text, ok := leadingText(element); ok {
			values = append(values, text)
		}
	}
	return strings.Join(values, ", ")
}

// paragraphText concatenates every paragraph's descendant text. Within a
// paragraph each fragment is trimmed and fragments are joined by a space;
// paragraphs are separated by a space and whitespace runs are collapsed.
func paragraphText(paragraphs []*etree.Element) string {
	if len(paragraphs) == 0 {
		return ""
	}

	var builder strings.Builder
	for _, paragraph := range paragraphs {
		fragments := collectText(paragraph, nil)
		for index, fragment := range fragments {
			fragments[index] = strings.TrimSpace(fragment)
		}
		builder.WriteString(strings.Join(fragments, " "))
		builder.WriteString(" ")
	}

	return cleanXMLText(builder.String())
}

// findDescendants returns every descendant of element (excluding element
// itself) with the given tag, in document order.
func findDescendants(element *etree.Element, tag string) []*etree.Element {
	var found []*etree.Element
	var walk func(parent *etree.Element)
	walk = func(parent *etree.Element) {
		for _, child := range parent.ChildElements() {
			if child.Tag == tag {
				found = append(found, child)
			}
			walk(child)
		}
	}
	walk(element)
	return found
}

// leadingText returns the character data that precedes the first child
// element, and whether there was any.
func leadingText(element *etree.Element) (string, bool) {
	var builder strings.Builder
	found := false

	for _, token := range element.Child {
		switch typed := token.(type) {
		case *etree.CharData:
			builder.WriteString(typed.Data)
			found = true
		case *etree.Element:
			return builder.String(), found
		}
	}

	return builder.String(), found
}

// collectText appends all character data under element in document order,
// descending into inline markup such as <E> and <I>.
func collectText(element *etree.Element, fragments []string) []string {
	for _, token := range element.Child {
		switch typed := token.(type) {
		case *etree.CharData:
			fragments = append(fragments, typed.Data)
		case *etree.Element:
			fragments = collectText(typed, fragments)
		}
	}
	return fragments
}

// cleanXMLText cleans up text extracted from XML, normalizing whitespace.
func cleanXMLText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
