package tabular

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/turtacn/OpportunityRadar/pkg/errors"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// FileOpportunities is the default artifact name.
const FileOpportunities = "opportunities.csv"

// WriteOpportunities encodes rows with a header in the fixed output column
// order.  An empty price sensitivity is written as an empty cell.
func WriteOpportunities(w io.Writer, rows opportunity.Opportunities) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(opportunity.OutputColumns); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "write header")
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "write row "+r.Category)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeOutputWriteFailed, "flush artifact")
	}
	return nil
}

// ReadOpportunities decodes an artifact written by WriteOpportunities.
func ReadOpportunities(r io.Reader) (opportunity.Opportunities, error) {
	t, err := readTable(r, FileOpportunities, opportunity.OutputColumns)
	if err != nil {
		return nil, err
	}
	out := make(opportunity.Opportunities, 0, len(t.rows))
	for i := range t.rows {
		volume, err := t.intAt(i, opportunity.ColSearchVolume)
		if err != nil {
			return nil, err
		}
		unmet, err := t.floatAt(i, opportunity.ColUnmetSignal)
		if err != nil {
			return nil, err
		}
		score, err := t.floatAt(i, opportunity.ColOpportunityScore)
		if err != nil {
			return nil, err
		}
		row := opportunity.CategoryOpportunity{
			Category:           t.cell(i, opportunity.ColCategory),
			SearchVolume:       volume,
			UnmetSignal:        unmet,
			MissingFeatures:    t.cell(i, opportunity.ColMissingFeatures),
			PainPoints:         t.cell(i, opportunity.ColPainPoints),
			OpportunityScore:   score,
			RecommendedActions: t.cell(i, opportunity.ColRecommendedActions),
		}
		if raw := strings.TrimSpace(t.cell(i, opportunity.ColPriceSensitivity)); raw != "" {
			p, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, t.malformed(i, opportunity.ColPriceSensitivity, raw, "numeric")
			}
			row.PriceSensitivity = &p
		}
		out = append(out, row)
	}
	return out, nil
}
