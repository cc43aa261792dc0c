package prediction

import (
	"github.com/futurecoin/futurecoin/internal/marketdata"
)

// normEpsilon keeps constant columns from dividing by zero during
// normalization.
const normEpsilon = 1e-8

// PrepareSequence converts the most recent bars into the model input:
// the last seqLen rows of [open, high, low, close, volume], left
// padded with zero rows when history is short, each column min-max
// scaled to [0, 1].
func PrepareSequence(series marketdata.Series, seqLen, features int) [][]float64 {
	start := len(series) - seqLen
	if start < 0 {
		start = 0
	}
	recent := series[start:]

	real := make([][]float64, len(recent))
	for i, bar := range recent {
		row := make([]float64, features)
		row[0] = bar.Open
		row[1] = bar.High
		row[2] = bar.Low
		row[3] = bar.Close
		if features > 4 {
			row[4] = bar.Volume
		}
		real[i] = row
	}

	// Scale observed rows only; padding rows stay zero.
	if len(real) > 0 {
		for col := 0; col < features; col++ {
			min, max := real[0][col], real[0][col]
			for _, row := range real {
				if row[col] < min {
					min = row[col]
				}
				if row[col] > max {
					max = row[col]
				}
			}
			span := max - min + normEpsilon
			for _, row := range real {
				row[col] = (row[col] - min) / span
			}
		}
	}

	rows := make([][]float64, seqLen)
	offset := seqLen - len(real)
	for i := 0; i < offset; i++ {
		rows[i] = make([]float64, features)
	}
	for i, row := range real {
		rows[offset+i] = row
	}
	return rows
}

