package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/EvanJ0hnson/Carty/internal/cart/catalog"
	"github.com/EvanJ0hnson/Carty/internal/cart/domain"
	"github.com/EvanJ0hnson/Carty/internal/cart/view"
	"github.com/EvanJ0hnson/Carty/internal/cart/widget"
	"github.com/EvanJ0hnson/Carty/pkg/kvstore"
)

// overlay is the terminal view port: a panel drawn over the catalog when
// open. Update replaces its content in place; a second Open never stacks a
// second panel.
type overlay struct {
	open   bool
	markup string
}

func (o *overlay) Open(markup string)   { o.open = true; o.markup = markup }
func (o *overlay) Update(markup string) { o.markup = markup }
func (o *overlay) Close()               { o.open = false; o.markup = "" }
func (o *overlay) IsOpen() bool         { return o.open }

// badge mirrors the distinct-line count shown next to the widget trigger.
type badge struct {
	count int
}

func (b *badge) SetCount(n int) { b.count = n }

type model struct {
	wdg     *widget.Widget
	port    *overlay
	bdg     *badge
	items   []namedItem
	cursor  int
	lineSel int
	status  string
}

type namedItem struct {
	id   string
	name string
}

func initialModel(wdg *widget.Widget, port *overlay, bdg *badge) model {
	m := model{wdg: wdg, port: port, bdg: bdg, status: "Ready"}
	for _, it := range wdg.Engine().Catalog() {
		m.items = append(m.items, namedItem{id: string(it.ID), name: it.Name})
	}
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up":
			if m.port.IsOpen() {
				if m.lineSel > 0 {
					m.lineSel--
				}
			} else if m.cursor > 0 {
				m.cursor--
			}
		case "down":
			if m.port.IsOpen() {
				if m.lineSel < m.wdg.Engine().ItemsCount()-1 {
					m.lineSel++
				}
			} else if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter", "a":
			if m.port.IsOpen() || len(m.items) == 0 {
				return m, nil
			}
			it := m.items[m.cursor]
			if err := m.wdg.Dispatch(widget.ActionAdd, domain.ItemID(it.id)); err != nil {
				m.status = fmt.Sprintf("Add failed: %v", err)
			} else {
				m.status = fmt.Sprintf("Added %s", it.name)
			}
		case "c":
			if m.port.IsOpen() {
				m.wdg.CloseWindow()
			} else {
				if err := m.wdg.ShowWindow(); err != nil {
					m.status = fmt.Sprintf("Cart view failed: %v", err)
				}
				m.lineSel = 0
			}
		case "+":
			m.dispatchLine(widget.ActionIncrease)
		case "-":
			m.dispatchLine(widget.ActionDecrease)
		case "x":
			m.dispatchLine(widget.ActionRemove)
		case "esc":
			m.wdg.CloseWindow()
		}
	}
	m.clampLineSel()
	return m, nil
}

func (m *model) dispatchLine(action widget.Action) {
	if !m.port.IsOpen() {
		return
	}
	lines := m.wdg.Engine().Items()
	if m.lineSel >= len(lines) {
		return
	}
	id := lines[m.lineSel].ID
	if err := m.wdg.Dispatch(action, id); err != nil {
		m.status = fmt.Sprintf("%s failed: %v", action, err)
	}
}

func (m *model) clampLineSel() {
	if n := m.wdg.Engine().ItemsCount(); m.lineSel >= n && n > 0 {
		m.lineSel = n - 1
	} else if n == 0 {
		m.lineSel = 0
	}
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Carty [cart: %d]\n\n", m.bdg.count)

	if m.port.IsOpen() {
		fmt.Fprintln(b, "--- Cart ---")
		fmt.Fprint(b, m.markupWithCursor())
		fmt.Fprintln(b, "------------")
		fmt.Fprintln(b, "\nControls: up/down select line, + increase, - decrease, x remove, c/esc close, q quit")
	} else {
		fmt.Fprintln(b, "Menu:")
		for i, it := range m.items {
			marker := " "
			if i == m.cursor {
				marker = ">"
			}
			fmt.Fprintf(b, " %s %s\n", marker, it.name)
		}
		fmt.Fprintln(b, "\nControls: up/down select, enter/a add to cart, c open cart, q quit")
	}

	fmt.Fprintf(b, "\nStatus: %s\n", m.status)
	return b.String()
}

// markupWithCursor prefixes the selected cart line with a marker. The markup
// itself comes from the view port untouched.
func (m model) markupWithCursor() string {
	lines := strings.Split(strings.TrimRight(m.port.markup, "\n"), "\n")
	out := &strings.Builder{}
	for i, line := range lines {
		marker := " "
		if i == m.lineSel && i < len(lines)-1 { // last line is the total
			marker = ">"
		}
		fmt.Fprintf(out, "%s %s\n", marker, line)
	}
	return out.String()
}

func main() {
	stateFile := getenv("STATE_FILE", "carty-state.json")
	widgetID := getenv("WIDGET_ID", "cart-widget")

	store, err := kvstore.OpenFile(stateFile)
	if err != nil {
		fmt.Println("state file error:", err)
		os.Exit(1)
	}

	var src catalog.Source
	if url := getenv("CATALOG_URL", ""); url != "" {
		src = &catalog.HTTPSource{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
	} else {
		src = catalog.StaticSource{
			{ID: "1", Name: "Salad with crab", Price: 130},
			{ID: "2", Name: "Soup of the day", Price: 95.5},
			{ID: "3", Name: "Grilled salmon", Price: 340},
			{ID: "4", Name: "Lemonade", Price: 60},
		}
	}

	port := &overlay{}
	bdg := &badge{}
	wdg, err := widget.New(widget.Config{
		ID:       widgetID,
		Store:    store,
		Renderer: view.NewTextRenderer(),
		Source:   src,
		Port:     port,
		Badge:    bdg,
	})
	if err != nil {
		fmt.Println("widget error:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := wdg.Init(ctx); err != nil {
		fmt.Println("init error:", err)
		os.Exit(1)
	}

	p := tea.NewProgram(initialModel(wdg, port, bdg))
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
