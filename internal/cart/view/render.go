package view

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
)

// Renderer maps view state to a markup string. Implementations must be pure:
// same state in, same markup out, no side effects.
type Renderer interface {
	RenderCart(st State) (string, error)
	RenderCatalog(items []domain.CatalogItem) (string, error)
}

// Control attribute names and action kinds read back by the delegated click
// dispatcher. One listener on a stable ancestor reads these two attributes;
// no per-line rebinding after re-render.
const (
	AttrAction = "data-cart-action"
	AttrItem   = "data-cart-item"

	ActionAdd      = "add"
	ActionRemove   = "remove"
	ActionIncrease = "increase"
	ActionDecrease = "decrease"
)

const cartTmpl = `<div class="cart">
<ul class="cart__list">
{{- range .Lines}}
<li class="cart__item">
<span class="cart__number">{{.Number}}</span>
<span class="cart__name">{{.Name}}</span>
<span class="cart__price">{{printf "%.2f" .Price}}</span>
<button class="cart__btn" data-cart-action="decrease" data-cart-item="{{.ID}}">-</button>
<span class="cart__count">{{.Count}}</span>
<button class="cart__btn" data-cart-action="increase" data-cart-item="{{.ID}}">+</button>
<span class="cart__sum">{{printf "%.2f" .Sum}}</span>
<button class="cart__btn" data-cart-action="remove" data-cart-item="{{.ID}}">x</button>
</li>
{{- end}}
</ul>
<div class="cart__total">Total: {{printf "%.2f" .Total}}</div>
</div>
`

const catalogTmpl = `<ul class="catalog">
{{- range .}}
<li class="catalog__item">
<span class="catalog__name">{{.Name}}</span>
<span class="catalog__price">{{printf "%.2f" .Price}}</span>
<button class="catalog__btn" data-cart-action="add" data-cart-item="{{.ID}}">Add</button>
</li>
{{- end}}
</ul>
`

// HTMLRenderer renders the overlay markup served by cart-service.
type HTMLRenderer struct {
	cart    *template.Template
	catalog *template.Template
}

func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{
		cart:    template.Must(template.New("cart").Parse(cartTmpl)),
		catalog: template.Must(template.New("catalog").Parse(catalogTmpl)),
	}
}

func (r *HTMLRenderer) RenderCart(st State) (string, error) {
	b := &strings.Builder{}
	if err := r.cart.Execute(b, st); err != nil {
		return "", fmt.Errorf("render cart: %w", err)
	}
	return b.String(), nil
}

func (r *HTMLRenderer) RenderCatalog(items []domain.CatalogItem) (string, error) {
	b := &strings.Builder{}
	if err := r.catalog.Execute(b, items); err != nil {
		return "", fmt.Errorf("render catalog: %w", err)
	}
	return b.String(), nil
}

// TextRenderer renders the plain-text equivalent for the terminal widget.
type TextRenderer struct{}

func NewTextRenderer() *TextRenderer { return &TextRenderer{} }

func (TextRenderer) RenderCart(st State) (string, error) {
	b := &strings.Builder{}
	if len(st.Lines) == 0 {
		fmt.Fprintln(b, "Your cart is empty.")
	}
	for _, line := range st.Lines {
		fmt.Fprintf(b, "%d. %s  %.2f x %d = %.2f\n", line.Number, line.Name, line.Price, line.Count, line.Sum)
	}
	fmt.Fprintf(b, "Total: %.2f\n", st.Total)
	return b.String(), nil
}

func (TextRenderer) RenderCatalog(items []domain.CatalogItem) (string, error) {
	b := &strings.Builder{}
	for _, it := range items {
		fmt.Fprintf(b, "%s  %.2f\n", it.Name, it.Price)
	}
	return b.String(), nil
}
