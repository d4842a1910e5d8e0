// Package view derives the render-ready projection of an order and turns it
// into markup.
package view

import (
	"math"

	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
)

// Line is one numbered row of the cart listing.
type Line struct {
	Number int
	ID     domain.ItemID
	Name   string
	Price  float64
	Count  int
	Sum    float64
}

// State is the derived view of an order. Never persisted; recomputed from
// the order on every render.
type State struct {
	Lines []Line
	Total float64
}

// Derive computes numbering, per-line sums and the 2-decimal total. Deriving
// twice from the same order yields identical state.
func Derive(order domain.Order) State {
	st := State{Lines: make([]Line, 0, len(order))}
	for i, line := range order {
		sum := round2(line.Price * float64(line.Count))
		st.Lines = append(st.Lines, Line{
			Number: i + 1,
			ID:     line.ID,
			Name:   line.Name,
			Price:  line.Price,
			Count:  line.Count,
			Sum:    sum,
		})
		st.Total += line.Price * float64(line.Count)
	}
	st.Total = round2(st.Total)
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
