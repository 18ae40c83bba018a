package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/escrutinio/internal/config"
	"github.com/IshaanNene/escrutinio/internal/types"
)

// ResultExtractor reads the departmental summary table and the per-party
// rows of the results page.
//
// The summary table is walked with XPath so that "every descendant div" and
// "first descendant span" map directly onto expressions. Party rows are
// matched with CSS selectors, since the page marks them by class.
type ResultExtractor struct {
	cfg    config.ExtractConfig
	logger *slog.Logger
}

// NewResultExtractor creates a new extractor for the configured page layout.
func NewResultExtractor(cfg config.ExtractConfig, logger *slog.Logger) *ResultExtractor {
	return &ResultExtractor{
		cfg:    cfg,
		logger: logger.With("component", "result_extractor"),
	}
}

// Extract implements Extractor.
func (e *ResultExtractor) Extract(page *types.Page) (*Result, error) {
	res := &Result{
		Record: types.NewRecord(page.URL(), page.District()),
	}
	res.Record.Set(types.FieldTimestamp, page.CapturedAt)

	if err := e.extractSummary(page, res); err != nil {
		return nil, err
	}
	if err := e.extractParties(page, res); err != nil {
		return nil, err
	}

	e.logger.Debug("record extracted",
		"fields", res.Record.Len(),
		"parties", res.Parties,
		"unmatched_labels", len(res.Unmatched),
		"skipped_rows", res.SkippedRows,
	)

	return res, nil
}

// extractSummary walks the rows of the summary container.
func (e *ResultExtractor) extractSummary(page *types.Page, res *Result) error {
	selector := "#" + e.cfg.ContainerID

	root, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return &types.ParseError{URL: page.URL(), Selector: selector, Err: err}
	}

	if strings.ContainsAny(e.cfg.ContainerID, `'"`) {
		return &types.ParseError{URL: page.URL(), Selector: selector, Err: fmt.Errorf("container id must not contain quotes")}
	}
	container, err := htmlquery.Query(root, fmt.Sprintf("//*[@id='%s']", e.cfg.ContainerID))
	if err != nil {
		return &types.ParseError{URL: page.URL(), Selector: selector, Err: err}
	}
	if container == nil {
		return &types.ParseError{URL: page.URL(), Selector: selector, Err: types.ErrContainerMissing}
	}

	rows, err := htmlquery.QueryAll(container, ".//tr")
	if err != nil {
		return &types.ParseError{URL: page.URL(), Selector: selector + " tr", Err: err}
	}

	for i, row := range rows {
		divs, err := htmlquery.QueryAll(row, ".//div")
		if err != nil {
			return &types.ParseError{URL: page.URL(), Selector: selector + " tr div", Err: err}
		}
		if len(divs) < 2 {
			res.SkippedRows++
			e.logger.Debug("summary row skipped: fewer than two cells", "row", i)
			continue
		}

		label := normalizeText(htmlquery.InnerText(divs[0]))

		span, err := htmlquery.Query(divs[1], ".//span")
		if err != nil {
			return &types.ParseError{URL: page.URL(), Selector: selector + " tr div span", Err: err}
		}
		if span == nil {
			res.SkippedRows++
			e.logger.Debug("summary row skipped: no value element", "row", i, "label", label)
			continue
		}
		value := normalizeText(htmlquery.InnerText(span))

		lf, ok := MatchLabel(label)
		if !ok {
			res.Unmatched = append(res.Unmatched, label)
			e.logger.Debug("unrecognized summary label", "label", label, "value", value)
			continue
		}

		res.Record.Set(lf.Field, lf.Convert(value))
	}

	return nil
}

// extractParties reads one vote count per party row.
func (e *ResultExtractor) extractParties(page *types.Page, res *Result) error {
	doc, err := page.Document()
	if err != nil {
		return &types.ParseError{URL: page.URL(), Selector: e.cfg.PartyRow, Err: err}
	}

	doc.Find(e.cfg.PartyRow).Each(func(i int, row *goquery.Selection) {
		nameSel := row.Find(e.cfg.PartyName).First()
		votesSel := row.Find(e.cfg.PartyVotes).First()
		if nameSel.Length() == 0 || votesSel.Length() == 0 {
			res.SkippedRows++
			e.logger.Debug("party row skipped: missing name or votes", "row", i)
			return
		}

		name := normalizeText(nameSel.Text())
		votes := ParseVotes(normalizeText(votesSel.Text()))
		field := PartyField(name)

		if res.Record.Has(field) {
			e.logger.Debug("duplicate party row, keeping the later one", "field", field)
		} else {
			res.Parties++
		}
		res.Record.Set(field, votes)
	})

	return nil
}
