package syncer

import "github.com/rickgao/barsync/internal/model"

// Outcome is the result of one (instrument, family) attempt.
type Outcome struct {
	Code   string
	Family model.Family
	Rows   int
	Err    error // Fetch or normalization failure; nil on success
}

// Fold adds the outcome to the summary.
func (o Outcome) Fold(s *model.Summary) {
	if o.Err != nil {
		s.Errors = append(s.Errors, model.ItemError{
			Symbol: o.Code,
			Mode:   string(o.Family),
			Error:  o.Err.Error(),
		})
		return
	}

	switch o.Family {
	case model.FamilyDaily:
		s.DailyRows += o.Rows
	case model.FamilyMinute:
		s.MinuteRows += o.Rows
	}
}
