package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/supiri/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/supiri/internal/app"
	"github.com/MrJamesThe3rd/supiri/internal/config"
)

type model struct {
	app *app.App

	currentView View

	newSaleView view.NewSaleModel
	salesView   view.SalesModel
	catalogView view.CatalogModel
}

type View int

const (
	ViewMenu    View = 0
	ViewNewSale View = 1
	ViewSales   View = 2
	ViewCatalog View = 3
)

func initialModel(a *app.App) model {
	return model{
		app:         a,
		currentView: ViewMenu,
		newSaleView: view.NewNewSaleModel(a.Drafts, a.Customers, a.Items),
		salesView:   view.NewSalesModel(a.Ledger),
		catalogView: view.NewCatalogModel(a.Customers, a.Items),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewNewSale
				m.newSaleView = view.NewNewSaleModel(m.app.Drafts, m.app.Customers, m.app.Items)

				return m, m.newSaleView.Init()
			case "2":
				m.currentView = ViewSales
				m.salesView = view.NewSalesModel(m.app.Ledger)

				return m, m.salesView.Init()
			case "3":
				m.currentView = ViewCatalog
				m.catalogView = view.NewCatalogModel(m.app.Customers, m.app.Items)

				return m, m.catalogView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewNewSale:
		var newModel tea.Model
		newModel, cmd = m.newSaleView.Update(msg)
		m.newSaleView = newModel.(view.NewSaleModel)
	case ViewSales:
		var newModel tea.Model
		newModel, cmd = m.salesView.Update(msg)
		m.salesView = newModel.(view.SalesModel)
	case ViewCatalog:
		var newModel tea.Model
		newModel, cmd = m.catalogView.Update(msg)
		m.catalogView = newModel.(view.CatalogModel)
	}

	return m, cmd
}

func (m model) View() string {
	var current view.View

	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Supiri\n\n" +
				"1. New Sale\n" +
				"2. Sales\n" +
				"3. Customers & Items\n\n" +
				"q. Quit",
		)
	case ViewNewSale:
		current = m.newSaleView
	case ViewSales:
		current = m.salesView
	case ViewCatalog:
		current = m.catalogView
	default:
		return "Unknown View"
	}

	help := lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(current.ShortHelp())

	return lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(current.Title()) + "\n" + current.View() + "\n" + help
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Log output would draw over the terminal UI.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	p := tea.NewProgram(initialModel(a), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
