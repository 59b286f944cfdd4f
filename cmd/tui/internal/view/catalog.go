package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/item"
)

type catalogTab int

const (
	tabCustomers catalogTab = iota
	tabItems
)

// CatalogModel lists customers and items and adds new ones.
type CatalogModel struct {
	CommonModel
	customers *customer.Service
	items     *item.Service

	tab    catalogTab
	table  table.Model
	form   *huh.Form
	status string

	customerList []*customer.Customer
	itemList     []*item.Item
}

func NewCatalogModel(customers *customer.Service, items *item.Service) CatalogModel {
	m := CatalogModel{customers: customers, items: items}
	m.table = newTable(m.columns(), 15)

	return m
}

func (m CatalogModel) Title() string { return "Customers & Items" }

func (m CatalogModel) ShortHelp() string {
	if m.form != nil {
		return "Esc: cancel | Enter/Tab: navigate form"
	}

	return "Tab: switch list | a: add | Esc: back"
}

func (m CatalogModel) columns() []table.Column {
	if m.tab == tabItems {
		return []table.Column{
			{Title: "#", Width: 6},
			{Title: "Name", Width: 28},
			{Title: "Price", Width: 12},
			{Title: "Stock", Width: 8},
			{Title: "SKU", Width: 14},
		}
	}

	return []table.Column{
		{Title: "#", Width: 6},
		{Title: "Name", Width: 28},
		{Title: "Phone", Width: 16},
		{Title: "Email", Width: 28},
	}
}

func (m CatalogModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m CatalogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case catalogLoadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.customerList, m.itemList = msg.customers, msg.items
		m.refresh()

		return m, nil

	case catalogSavedMsg:
		m.form = nil
		m.table.Focus()

		m.status = msg.result
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		return m, m.loadCmd()
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "tab":
			m.tab = 1 - m.tab
			m.table.SetRows(nil)
			m.table.SetColumns(m.columns())
			m.refresh()

			return m, nil
		case "a":
			return m.openForm()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m CatalogModel) openForm() (tea.Model, tea.Cmd) {
	required := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s cannot be empty", field)
			}

			return nil
		}
	}

	var group *huh.Group

	if m.tab == tabItems {
		group = huh.NewGroup(
			huh.NewInput().Key("name").Title("Name").Validate(required("name")),
			huh.NewInput().Key("price").Title("Price").Validate(func(s string) error {
				cents, err := parseAmount(s)
				if err == nil && cents <= 0 {
					return fmt.Errorf("price must be positive")
				}

				return err
			}),
			huh.NewInput().Key("cost").Title("Cost price (optional)").Validate(func(s string) error {
				_, err := parseAmount(s)
				return err
			}),
			huh.NewInput().Key("stock").Title("Stock (optional)").Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return nil
				}

				_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)

				return err
			}),
			huh.NewInput().Key("sku").Title("SKU (optional)"),
		).Title("New item")
	} else {
		group = huh.NewGroup(
			huh.NewInput().Key("name").Title("Name").Validate(required("name")),
			huh.NewInput().Key("phone").Title("Phone (optional)"),
			huh.NewInput().Key("email").Title("Email (optional)"),
		).Title("New customer")
	}

	m.form = huh.NewForm(group).WithWidth(50).WithShowHelp(false)
	m.table.Blur()

	return m, m.form.Init()
}

func (m CatalogModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m CatalogModel) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.tabsView(),
		"",
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
	)

	if m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(54).
			Render(m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m CatalogModel) tabsView() string {
	labels := []string{fmt.Sprintf("Customers (%d)", len(m.customerList)), fmt.Sprintf("Items (%d)", len(m.itemList))}
	labels[m.tab] = activeStyle(labels[m.tab])

	return strings.Join(labels, "  |  ")
}

func (m *CatalogModel) refresh() {
	var rows []table.Row

	if m.tab == tabItems {
		for _, it := range m.itemList {
			rows = append(rows, table.Row{
				strconv.FormatInt(it.ID, 10),
				it.Name,
				FormatAmount(it.Price),
				strconv.FormatInt(it.Quantity, 10),
				it.SKU,
			})
		}
	} else {
		for _, c := range m.customerList {
			rows = append(rows, table.Row{strconv.FormatInt(c.ID, 10), c.Name, c.Phone, c.Email})
		}
	}

	m.table.SetRows(rows)
}

// Messages

type catalogLoadedMsg struct {
	customers []*customer.Customer
	items     []*item.Item
	err       error
}

func (m CatalogModel) loadCmd() tea.Cmd {
	customers, items := m.customers, m.items

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cs, err := customers.List(ctx)
		if err != nil {
			return catalogLoadedMsg{err: err}
		}

		its, err := items.List(ctx)

		return catalogLoadedMsg{customers: cs, items: its, err: err}
	}
}

type catalogSavedMsg struct {
	result string
	err    error
}

func (m CatalogModel) saveCmd() tea.Cmd {
	f, tab := m.form, m.tab
	customers, items := m.customers, m.items

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if tab == tabCustomers {
			c, err := customers.Create(ctx, customer.Params{
				Name:  f.GetString("name"),
				Phone: f.GetString("phone"),
				Email: f.GetString("email"),
			})
			if err != nil {
				return catalogSavedMsg{err: err}
			}

			return catalogSavedMsg{result: fmt.Sprintf("Added customer %s.", c.Name)}
		}

		price, err := parseAmount(f.GetString("price"))
		if err != nil {
			return catalogSavedMsg{err: err}
		}

		cost, err := parseAmount(f.GetString("cost"))
		if err != nil {
			return catalogSavedMsg{err: err}
		}

		var stock int64
		if s := strings.TrimSpace(f.GetString("stock")); s != "" {
			if stock, err = strconv.ParseInt(s, 10, 64); err != nil {
				return catalogSavedMsg{err: err}
			}
		}

		it, err := items.Create(ctx, item.Params{
			Name:      f.GetString("name"),
			Price:     price,
			CostPrice: cost,
			Quantity:  stock,
			SKU:       f.GetString("sku"),
		})
		if err != nil {
			return catalogSavedMsg{err: err}
		}

		return catalogSavedMsg{result: fmt.Sprintf("Added item %s at %s.", it.Name, FormatAmount(it.Price))}
	}
}
