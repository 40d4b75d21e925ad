package reconcile

import (
	"encoding/json"
	"fmt"
	"sort"
)

// PeriodRecord is the wire shape of one period's attendance. The portal API
// emits `Present` capitalized and `absent` lower-cased; both casings of both
// keys decode to the same fields.
type PeriodRecord struct {
	Present []string
	Absent  []string
}

func (p *PeriodRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pick := func(keys ...string) ([]string, error) {
		for _, k := range keys {
			v, ok := raw[k]
			if !ok {
				continue
			}
			var list []string
			if err := json.Unmarshal(v, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
		return nil, nil
	}
	var err error
	if p.Present, err = pick("Present", "present"); err != nil {
		return err
	}
	if p.Absent, err = pick("absent", "Absent"); err != nil {
		return err
	}
	return nil
}

// PeriodSummary is the normalized view of one period.
type PeriodSummary struct {
	Period         string
	PresentRollNos []string
	AbsentRollNos  []string
	Total          int
}

// SummarizeByPeriod normalizes the API's period-keyed raw records into
// ordered summaries. Periods sort numerically when they parse as numbers,
// lexically otherwise.
func SummarizeByPeriod(byPeriod map[string]PeriodRecord) []PeriodSummary {
	out := make([]PeriodSummary, 0, len(byPeriod))
	for period, rec := range byPeriod {
		present := append([]string(nil), rec.Present...)
		absent := append([]string(nil), rec.Absent...)
		out = append(out, PeriodSummary{
			Period:         period,
			PresentRollNos: present,
			AbsentRollNos:  absent,
			Total:          len(present) + len(absent),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		var a, b int
		aOK := parsePeriod(out[i].Period, &a)
		bOK := parsePeriod(out[j].Period, &b)
		if aOK && bOK {
			return a < b
		}
		return out[i].Period < out[j].Period
	})
	return out
}

func parsePeriod(s string, out *int) bool {
	_, err := fmt.Sscanf(s, "%d", out)
	return err == nil
}

// RawCumulative is the wire shape of the cumulative attendance response. The
// portal API misnames the present count `percentCount`; the saner
// `presentCount` is accepted as an alias.
type RawCumulative struct {
	Total        int      `json:"total"`
	PercentCount int      `json:"percentCount"`
	PresentCount *int     `json:"presentCount"`
	Percentage   *float64 `json:"percentage"`
}

// CumulativeSummary is the normalized cumulative view.
type CumulativeSummary struct {
	Total        int
	PresentCount int
	Percentage   float64
}

// SummarizeCumulative normalizes a raw cumulative record. A missing
// percentage is computed from the counts; the result is clamped to [0,100]
// and rounded to two decimals.
func SummarizeCumulative(raw RawCumulative) CumulativeSummary {
	present := raw.PercentCount
	if raw.PresentCount != nil {
		present = *raw.PresentCount
	}
	var pct float64
	switch {
	case raw.Percentage != nil:
		pct = *raw.Percentage
	case raw.Total > 0:
		pct = float64(present) / float64(raw.Total) * 100
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	pct = round2(pct)
	return CumulativeSummary{Total: raw.Total, PresentCount: present, Percentage: pct}
}

func round2(f float64) float64 {
	if f >= 0 {
		return float64(int64(f*100+0.5)) / 100
	}
	return float64(int64(f*100-0.5)) / 100
}

// FormatPercentage renders a percentage with two-decimal precision, the way
// the dashboards display it.
func FormatPercentage(pct float64) string {
	return fmt.Sprintf("%.2f", pct)
}
