package samk

import (
	"strconv"
	"strings"

	"poolwatch-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
)

const (
	chartNameClass  = "aq-chart-name"
	chartValueClass = "aq-chart-value"
)

// the pool chart is labelled in czech, the page has been seen both with and
// without the diacritic.
var poolLabels = []string{"Bazen", "Bazén"}

// labels at least this similar to a pool label are reported as drift instead
// of as an unrelated chart.
const labelDriftThreshold = 0.85

// Miss describes why a page did not yield an occupancy value.
type Miss int

const (
	MissNone Miss = iota
	MissEmpty
	MissNoChartName
	MissWrongLabel
	MissNoValue
	MissNotNumeric
)

func (m Miss) String() string {
	switch m {
	case MissNone:
		return "none"
	case MissEmpty:
		return "empty page"
	case MissNoChartName:
		return "no chart name"
	case MissWrongLabel:
		return "wrong chart label"
	case MissNoValue:
		return "no chart value"
	case MissNotNumeric:
		return "value not numeric"
	}
	return "unknown"
}

// Result is the outcome of inspecting a page.
type Result struct {
	Occupancy int
	Miss      Miss
	// Label is the chart name that was found, if any.
	Label string
	// Value is the raw chart value text that was found, if any.
	Value string
	// LabelDrift is set when the label did not match but looks like a
	// misspelled or renamed pool label.
	LabelDrift bool
}

func (r Result) OK() bool {
	return r.Miss == MissNone
}

// Extract returns the pool occupancy on the page, or false if it could not
// be found. It never panics on malformed input.
func Extract(html string) (int, bool) {
	res := Inspect(html)
	return res.Occupancy, res.OK()
}

// Inspect is Extract but it also reports why extraction missed.
func Inspect(html string) Result {
	if strings.TrimSpace(html) == "" {
		return Result{Miss: MissEmpty}
	}

	// the html tokenizer recovers from any malformed markup, the only error
	// that can come out of here is from the reader.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{Miss: MissEmpty}
	}

	name := doc.Find(htmlutil.ExactClass(chartNameClass)).First()
	if name.Length() == 0 {
		return Result{Miss: MissNoChartName}
	}

	label := htmlutil.TrimmedText(name)
	if !isPoolLabel(label) {
		return Result{
			Miss:       MissWrongLabel,
			Label:      htmlutil.CleanText(label),
			LabelDrift: isLabelDrift(label),
		}
	}

	// only siblings after the name belong to its chart, a value that precedes
	// it is the value of some other chart.
	value := name.NextAllFiltered(htmlutil.ExactClass(chartValueClass)).First()
	valueText := htmlutil.TrimmedText(value)
	if valueText == "" {
		return Result{Miss: MissNoValue, Label: label}
	}

	occupancy, err := strconv.Atoi(valueText)
	if err != nil || occupancy < 0 {
		return Result{
			Miss:  MissNotNumeric,
			Label: label,
			Value: htmlutil.CleanText(valueText),
		}
	}

	return Result{
		Occupancy: occupancy,
		Label:     label,
		Value:     valueText,
	}
}

func isPoolLabel(label string) bool {
	for _, l := range poolLabels {
		if strings.EqualFold(label, l) {
			return true
		}
	}
	return false
}

func isLabelDrift(label string) bool {
	label = strings.ToLower(label)
	if label == "" {
		return false
	}
	for _, l := range poolLabels {
		if matchr.JaroWinkler(label, strings.ToLower(l), false) >= labelDriftThreshold {
			return true
		}
	}
	return false
}
