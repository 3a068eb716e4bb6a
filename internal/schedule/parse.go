package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"schedule-extractor/internal/components/telemetry"
	"schedule-extractor/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	report_parse                 = "parse"
	report_parse_no_date_rows    = "parse.no-date-rows"
	report_parse_skipped_channel = "parse.skipped-channel"
)

const (
	classDateRow     = "date-row"
	classCategoryRow = "category-row"
	classEventRow    = "event-row"

	channelLinkSelector = "a.channel-button-small"

	// appended verbatim to every category label, companion row ids include it.
	categorySuffix = "</span>"
)

var (
	streamIdRegex    = regexp.MustCompile(`stream-(\d+)\.php`)
	channelCodeRegex = regexp.MustCompile(`\s*\(CH-\d+\)$`)
)

// ErrStructural is matched (via errors.Is) by every StructuralError.
var ErrStructural = errors.New("schedule: structural error")

// StructuralError is returned when a row has been classified but lacks a
// sub-element its role requires.
type StructuralError struct {
	// Row is the zero-based index of the offending <tr> in document order.
	Row     int
	Role    string
	Missing string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("schedule: %s %d is missing %s", e.Role, e.Row, e.Missing)
}

func (e *StructuralError) Is(target error) bool {
	return target == ErrStructural
}

// CategoryLabel is the category name as shown on the page, without the
// suffix carried by record keys.
func CategoryLabel(category string) string {
	return strings.TrimSuffix(category, categorySuffix)
}

// CompanionKey is the id of the channel row paired with the index-th event
// of a category.
func CompanionKey(date, category string, index int) string {
	return fmt.Sprintf("channels-%s-%s-%d", date, category, index)
}

// NormalizeChannelName strips a trailing "(CH-<digits>)" code, and the
// whitespace before it, from a channel name.
func NormalizeChannelName(name string) string {
	return channelCodeRegex.ReplaceAllString(name, "")
}

// StreamId extracts the digits of a ".../stream-<digits>.php" link.
func StreamId(href string) (string, bool) {
	groups := streamIdRegex.FindStringSubmatch(href)
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

// Parse converts the markup of the schedule container into a Record.
//
// The container is a flat run of table rows, the hierarchy is rebuilt from
// the row classes: a date row opens a date, a category row opens a category
// under the current date, and an event row appends to the current category.
// Each event's channels live in a separate row addressed by CompanionKey.
func Parse(markup string, tel telemetry.API) (*Record, error) {
	tel = telemetry.NewScopedAPI("schedule", tel)

	doc, err := htmlutil.NewRowDocument(markup)
	if err != nil {
		tel.ReportBroken(report_parse, fmt.Errorf("read markup: %w", err))
		return nil, err
	}

	record := NewRecord()
	if doc.Find("tr." + classDateRow).Length() == 0 {
		tel.ReportWarning(report_parse_no_date_rows, "no date rows found in the container markup")
		return record, nil
	}

	w := walker{
		record:     record,
		companions: indexCompanionRows(doc),
		tel:        tel,
	}
	doc.Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		err = w.visit(i, row)
		return err == nil
	})
	if err != nil {
		tel.ReportBroken(report_parse, err)
		return nil, err
	}

	tel.ReportDebug("parsed schedule", "dates", record.Len(), "events", record.EventCount())
	return record, nil
}

// indexCompanionRows maps every row id to its row, the first row wins when
// ids repeat.
func indexCompanionRows(doc *goquery.Document) map[string]*goquery.Selection {
	companions := map[string]*goquery.Selection{}
	doc.Find("tr[id]").Each(func(_ int, row *goquery.Selection) {
		id := row.AttrOr("id", "")
		if _, ok := companions[id]; ok {
			return
		}
		companions[id] = row
	})
	return companions
}

// walker carries the context of a single pass over the rows.
type walker struct {
	record     *Record
	companions map[string]*goquery.Selection
	tel        telemetry.API

	// empty means unset, a date row with an empty label opens nothing.
	date       string
	categories *Categories
	category   string
}

func (w *walker) visit(i int, row *goquery.Selection) error {
	switch {
	case row.HasClass(classDateRow):
		return w.enterDate(i, row)
	case row.HasClass(classCategoryRow) && w.date != "":
		return w.enterCategory(i, row)
	case row.HasClass(classEventRow) && w.date != "" && w.category != "":
		return w.addEvent(i, row)
	}
	return nil
}

func (w *walker) enterDate(i int, row *goquery.Selection) error {
	label, err := strongText(i, classDateRow, row)
	if err != nil {
		return err
	}
	w.categories = w.record.reset(label)
	w.date = label
	w.category = ""
	return nil
}

func (w *walker) enterCategory(i int, row *goquery.Selection) error {
	label, err := strongText(i, classCategoryRow, row)
	if err != nil {
		return err
	}
	w.category = label + categorySuffix
	w.categories.reset(w.category)
	return nil
}

func (w *walker) addEvent(i int, row *goquery.Selection) error {
	timeDiv := row.Find("div.event-time").First()
	if timeDiv.Length() == 0 {
		return &StructuralError{Row: i, Role: classEventRow, Missing: "div.event-time"}
	}
	eventTime, err := strongText(i, classEventRow, timeDiv)
	if err != nil {
		return err
	}
	info := row.Find("div.event-info").First()
	if info.Length() == 0 {
		return &StructuralError{Row: i, Role: classEventRow, Missing: "div.event-info"}
	}

	index := len(w.categories.Events(w.category))
	channels, err := w.channels(i, CompanionKey(w.date, w.category, index))
	if err != nil {
		return err
	}

	w.categories.add(w.category, Event{
		Time:        eventTime,
		Description: strings.TrimSpace(info.Text()),
		Channels:    channels,
	})
	return nil
}

func (w *walker) channels(i int, key string) ([]Channel, error) {
	channels := []Channel{}
	companion, ok := w.companions[key]
	if !ok {
		return channels, nil
	}

	anchors, err := htmlutil.GetAnchors(companion.Find(channelLinkSelector))
	if err != nil {
		return nil, &StructuralError{Row: i, Role: "channel-row", Missing: fmt.Sprintf("href (%v)", err)}
	}
	for _, a := range anchors {
		id, ok := StreamId(a.Href)
		if !ok {
			w.tel.ReportDebug(report_parse_skipped_channel, key, a.Href)
			continue
		}
		channels = append(channels, Channel{
			Name: NormalizeChannelName(a.Name),
			Id:   id,
		})
	}
	return channels, nil
}

func strongText(i int, role string, sel *goquery.Selection) (string, error) {
	strong := sel.Find("strong").First()
	if strong.Length() == 0 {
		return "", &StructuralError{Row: i, Role: role, Missing: "strong"}
	}
	return strings.TrimSpace(strong.Text()), nil
}
