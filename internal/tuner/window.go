package tuner

import "math"

// Window is a bounded FIFO of realized net returns. Adding past capacity
// evicts the oldest value.
type Window struct {
	capacity int
	returns  []float64
}

func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 50
	}
	return &Window{capacity: capacity, returns: make([]float64, 0, capacity)}
}

func (w *Window) Add(ret float64) {
	if len(w.returns) == w.capacity {
		copy(w.returns, w.returns[1:])
		w.returns = w.returns[:w.capacity-1]
	}
	w.returns = append(w.returns, ret)
}

func (w *Window) Len() int { return len(w.returns) }

func (w *Window) Capacity() int { return w.capacity }

// Values returns a copy, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.returns))
	copy(out, w.returns)
	return out
}

// Stats summarizes a set of returns.
type Stats struct {
	Trades        int
	Wins          int
	Losses        int
	WinRate       float64
	AvgWin        float64
	AvgLoss       float64 // magnitude
	ProfitFactor  float64
	ExpectedValue float64
}

// ComputeStats derives win rate, averages, profit factor and expected value.
// Profit factor is +Inf with wins and no losses and 0 without wins.
func ComputeStats(returns []float64) Stats {
	s := Stats{Trades: len(returns)}
	if s.Trades == 0 {
		return s
	}

	sumWin, sumLoss := 0.0, 0.0
	for _, r := range returns {
		switch {
		case r > 0:
			s.Wins++
			sumWin += r
		case r < 0:
			s.Losses++
			sumLoss -= r
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWin = sumWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = sumLoss / float64(s.Losses)
	}

	switch {
	case sumLoss > 0:
		s.ProfitFactor = sumWin / sumLoss
	case sumWin > 0:
		s.ProfitFactor = math.Inf(1)
	}

	s.ExpectedValue = s.WinRate*s.AvgWin - (1-s.WinRate)*s.AvgLoss
	return s
}
