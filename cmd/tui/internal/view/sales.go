package view

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

type salesState int

const (
	salesStateTimeframe salesState = iota
	salesStateList
	salesStateDetail
	salesStateForm
)

type salesForm int

const (
	formPayment salesForm = iota
	formDiscount
	formTax
	formDelete
)

var statusFilters = []sale.PaymentStatus{"", sale.StatusUnpaid, sale.StatusPartiallyPaid, sale.StatusPaid}

// SalesModel browses sales by date range and payment status and manages a
// single sale's lines, adjustments and payments.
type SalesModel struct {
	CommonModel
	ledger *sale.Ledger

	state  salesState
	picker TimeframePicker
	table  table.Model
	lines  table.Model
	form   *huh.Form
	kind   salesForm

	params     sale.ListParams
	rangeLabel string
	statusIdx  int
	page       *sale.Page
	details    *sale.Details

	loading bool
	status  string

	// Form bindings
	formAmount  string
	formMethod  sale.PaymentMethod
	formNotes   string
	formConfirm bool
}

func newTable(columns []table.Column, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func NewSalesModel(ledger *sale.Ledger) SalesModel {
	return SalesModel{
		ledger: ledger,
		picker: NewTimeframePicker(TimeframeToday),
		table: newTable([]table.Column{
			{Title: "#", Width: 6},
			{Title: "Date", Width: 12},
			{Title: "Customer", Width: 24},
			{Title: "Items", Width: 6},
			{Title: "Total", Width: 12},
			{Title: "Paid", Width: 12},
			{Title: "Status", Width: 16},
		}, 15),
		lines: newTable([]table.Column{
			{Title: "Line", Width: 6},
			{Title: "Item", Width: 8},
			{Title: "Qty", Width: 6},
			{Title: "Price", Width: 12},
			{Title: "Total", Width: 12},
		}, 8),
		params: sale.ListParams{Limit: sale.DefaultPageSize},
	}
}

func (m SalesModel) Title() string { return "Sales" }

func (m SalesModel) ShortHelp() string {
	switch m.state {
	case salesStateTimeframe:
		return "Esc: back | Enter: select"
	case salesStateList:
		return "Esc: back | Enter: open | s: status | ←/→: page | t: timeframe | r: refresh"
	case salesStateDetail:
		return "Esc: list | p: payment | d: discount | x: tax | +/-: quantity | backspace: remove line | D: delete sale"
	case salesStateForm:
		return "Esc: cancel | Enter/Tab: navigate form"
	}

	return ""
}

func (m SalesModel) Init() tea.Cmd {
	return nil
}

func (m SalesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.params.From, m.params.To = msg.Start, msg.End
		m.params.Page = 1
		m.rangeLabel = msg.Label()
		m.state = salesStateList
		m.loading = true

		return m, m.loadSalesCmd()

	case salesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.page = msg.page
		m.refreshSales()

		if msg.page.Total == 0 {
			m.status = "No sales found."
		}

		return m, nil

	case detailsLoadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			m.state = salesStateList

			return m, m.loadSalesCmd()
		}

		m.details = msg.details
		m.refreshLines()
		m.state = salesStateDetail

		return m, nil

	case saleActionMsg:
		m.status = msg.result
		if msg.err != nil {
			m.status = describeError(msg.err)
		}

		m.form = nil

		if msg.deleted {
			m.details = nil
			m.state = salesStateList

			return m, m.loadSalesCmd()
		}

		m.state = salesStateDetail

		return m, m.loadDetailsCmd(msg.saleID)

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(5, msg.Height-10))

		return m, nil
	}

	switch m.state {
	case salesStateTimeframe:
		return m.updateTimeframe(msg)
	case salesStateList:
		return m.updateList(msg)
	case salesStateDetail:
		return m.updateDetail(msg)
	case salesStateForm:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m SalesModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.Type == tea.KeyEsc && m.picker.IsSelecting() {
			return m, Back
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	return m, cmd
}

func (m SalesModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "t":
			m.state = salesStateTimeframe
			return m, nil
		case "r":
			m.loading = true
			return m, m.loadSalesCmd()
		case "s":
			m.statusIdx = (m.statusIdx + 1) % len(statusFilters)
			m.params.Status = statusFilters[m.statusIdx]
			m.params.Page = 1

			return m, m.loadSalesCmd()
		case "right", "l":
			if m.page != nil && m.page.Page < m.page.TotalPages {
				m.params.Page = m.page.Page + 1
				return m, m.loadSalesCmd()
			}

			return m, nil
		case "left", "h":
			if m.page != nil && m.page.Page > 1 {
				m.params.Page = m.page.Page - 1
				return m, m.loadSalesCmd()
			}

			return m, nil
		case "enter":
			if s := m.selectedSale(); s != nil {
				return m, m.loadDetailsCmd(s.ID)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m SalesModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || m.details == nil {
		return m, nil
	}

	saleID := m.details.Sale.ID

	switch keyMsg.String() {
	case "esc":
		m.state = salesStateList
		m.details = nil

		return m, m.loadSalesCmd()
	case "p":
		return m.openForm(formPayment)
	case "d":
		return m.openForm(formDiscount)
	case "x":
		return m.openForm(formTax)
	case "D":
		return m.openForm(formDelete)
	case "+", "=":
		if li := m.selectedLine(); li != nil {
			return m, m.lineQuantityCmd(saleID, li.ID, li.Quantity+1)
		}
	case "-":
		if li := m.selectedLine(); li != nil {
			return m, m.lineQuantityCmd(saleID, li.ID, li.Quantity-1)
		}
	case "backspace", "delete":
		if li := m.selectedLine(); li != nil {
			return m, m.removeLineCmd(saleID, li.ID)
		}
	}

	var cmd tea.Cmd
	m.lines, cmd = m.lines.Update(msg)

	return m, cmd
}

func (m SalesModel) openForm(kind salesForm) (tea.Model, tea.Cmd) {
	s := m.details.Sale

	m.kind = kind
	m.formNotes = ""
	m.formConfirm = false
	m.formMethod = sale.MethodCash

	amountInput := func(title string) *huh.Input {
		return huh.NewInput().
			Key("amount").
			Title(title).
			Value(&m.formAmount).
			Validate(func(v string) error {
				_, err := parseAmount(v)
				return err
			})
	}

	var group *huh.Group

	switch kind {
	case formPayment:
		m.formAmount = FormatPlain(max(0, s.FinalAmount-s.AmountPaid))

		methods := make([]huh.Option[sale.PaymentMethod], len(sale.Methods))
		for i, pm := range sale.Methods {
			methods[i] = huh.NewOption(methodLabel(pm), pm)
		}

		group = huh.NewGroup(
			amountInput("Payment amount"),
			huh.NewSelect[sale.PaymentMethod]().
				Key("method").
				Title("Method").
				Options(methods...).
				Value(&m.formMethod),
			huh.NewInput().
				Key("notes").
				Title("Notes (optional)").
				Value(&m.formNotes),
		)
	case formDiscount:
		m.formAmount = FormatPlain(s.Discount)
		group = huh.NewGroup(amountInput(fmt.Sprintf("Discount (subtotal %s)", FormatAmount(s.Subtotal))))
	case formTax:
		m.formAmount = FormatPlain(s.Tax)
		group = huh.NewGroup(amountInput("Tax"))
	case formDelete:
		group = huh.NewGroup(
			huh.NewConfirm().
				Key("confirm").
				Title(fmt.Sprintf("Delete sale #%d with its items and payments?", s.ID)).
				Affirmative("Delete").
				Negative("Keep").
				Value(&m.formConfirm),
		)
	}

	m.form = huh.NewForm(group).WithWidth(50).WithShowHelp(false)
	m.state = salesStateForm

	return m, m.form.Init()
}

func (m SalesModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		m.state = salesStateDetail

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.submitCmd()
}

func (m SalesModel) View() string {
	switch m.state {
	case salesStateTimeframe:
		return lipgloss.NewStyle().Padding(1).Render(m.picker.View())
	case salesStateList:
		return m.listView()
	case salesStateDetail, salesStateForm:
		return m.detailView()
	}

	return ""
}

func (m SalesModel) listView() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading sales...")
	}

	statusLabel := "All"
	if m.params.Status != "" {
		statusLabel = string(m.params.Status)
	}

	header := fmt.Sprintf("Sales: %s | [s] Status: %s", activeStyle(m.rangeLabel), activeStyle(statusLabel))
	if m.page != nil {
		header += fmt.Sprintf(" | Page %d/%d (%d sales)", m.page.Page, max(1, m.page.TotalPages), m.page.Total)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m SalesModel) detailView() string {
	if m.details == nil {
		return lipgloss.NewStyle().Padding(2).Render("Loading sale...")
	}

	s := m.details.Sale

	customerName := sale.UnknownCustomer
	if m.details.Customer != nil {
		customerName = m.details.Customer.Name
	}

	summary := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(fmt.Sprintf(
			"Sale #%d  |  %s  |  %s\n\nSubtotal: %s\nDiscount: %s\nTax:      %s\nTotal:    %s\nPaid:     %s\nBalance:  %s\nStatus:   %s",
			s.ID, FormatDate(s.SaleDate), customerName,
			FormatAmount(s.Subtotal),
			FormatAmount(s.Discount),
			FormatAmount(s.Tax),
			FormatAmount(s.FinalAmount),
			FormatAmount(s.AmountPaid),
			FormatAmount(s.FinalAmount-s.AmountPaid),
			formatStatus(s.PaymentStatus),
		))

	payments := "No payments."
	if len(m.details.Payments) > 0 {
		payments = "Payments:"
		for _, p := range m.details.Payments {
			payments += fmt.Sprintf("\n  %s  %12s  %s", FormatDate(p.PaymentDate), FormatAmount(p.Amount), methodLabel(p.Method))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		summary,
		"",
		m.lines.View(),
		"",
		payments,
	)

	if m.state == salesStateForm && m.form != nil {
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

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func methodLabel(m sale.PaymentMethod) string {
	switch m {
	case sale.MethodCash:
		return "Cash"
	case sale.MethodBankTransfer:
		return "Bank Transfer"
	case sale.MethodCreditCard:
		return "Credit Card"
	case sale.MethodOther:
		return "Other"
	}

	return string(m)
}

// describeError turns ledger failures into a status line. A partial delete
// names the sale so it can be retried.
func describeError(err error) string {
	var cascade *sale.CascadeError

	switch {
	case errors.As(err, &cascade):
		return fmt.Sprintf("Sale #%d was only partly deleted (%s). Delete it again to finish.", cascade.SaleID, cascade.Stage)
	case errors.Is(err, sale.ErrInvalidArgument):
		return fmt.Sprintf("Rejected: %v", err)
	case errors.Is(err, sale.ErrNotFound):
		return "That record no longer exists."
	}

	return fmt.Sprintf("Error: %v", err)
}

func (m SalesModel) selectedSale() *sale.Sale {
	idx := m.table.Cursor()
	if m.page == nil || idx < 0 || idx >= len(m.page.Sales) {
		return nil
	}

	return m.page.Sales[idx].Sale
}

func (m SalesModel) selectedLine() *sale.LineItem {
	idx := m.lines.Cursor()
	if m.details == nil || idx < 0 || idx >= len(m.details.Items) {
		return nil
	}

	return m.details.Items[idx]
}

func (m *SalesModel) refreshSales() {
	rows := make([]table.Row, 0, len(m.page.Sales))
	for _, s := range m.page.Sales {
		rows = append(rows, table.Row{
			strconv.FormatInt(s.Sale.ID, 10),
			FormatDate(s.Sale.SaleDate),
			s.CustomerName,
			strconv.Itoa(s.Sale.ItemCount),
			FormatAmount(s.Sale.FinalAmount),
			FormatAmount(s.Sale.AmountPaid),
			string(s.Sale.PaymentStatus),
		})
	}

	m.table.SetRows(rows)
}

func (m *SalesModel) refreshLines() {
	rows := make([]table.Row, 0, len(m.details.Items))
	for _, li := range m.details.Items {
		rows = append(rows, table.Row{
			strconv.FormatInt(li.ID, 10),
			strconv.FormatInt(li.ItemID, 10),
			strconv.FormatInt(li.Quantity, 10),
			FormatAmount(li.Price),
			FormatAmount(li.Total),
		})
	}

	m.lines.SetRows(rows)

	if m.lines.Cursor() >= len(rows) {
		m.lines.SetCursor(max(0, len(rows)-1))
	}
}

// Messages

type salesLoadedMsg struct {
	page *sale.Page
	err  error
}

func (m SalesModel) loadSalesCmd() tea.Cmd {
	ledger, params := m.ledger, m.params

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		page, err := ledger.List(ctx, params)

		return salesLoadedMsg{page: page, err: err}
	}
}

type detailsLoadedMsg struct {
	details *sale.Details
	err     error
}

func (m SalesModel) loadDetailsCmd(saleID int64) tea.Cmd {
	ledger := m.ledger

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		d, err := ledger.Details(ctx, saleID)

		return detailsLoadedMsg{details: d, err: err}
	}
}

type saleActionMsg struct {
	saleID  int64
	result  string
	deleted bool
	err     error
}

func (m SalesModel) lineQuantityCmd(saleID, lineID, qty int64) tea.Cmd {
	ledger := m.ledger

	if qty < 1 {
		return m.removeLineCmd(saleID, lineID)
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_, err := ledger.UpdateLineItemQuantity(ctx, lineID, qty)

		return saleActionMsg{saleID: saleID, result: fmt.Sprintf("Quantity set to %d.", qty), err: err}
	}
}

func (m SalesModel) removeLineCmd(saleID, lineID int64) tea.Cmd {
	ledger := m.ledger

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		err := ledger.RemoveLineItem(ctx, lineID)

		return saleActionMsg{saleID: saleID, result: "Line removed.", err: err}
	}
}

func (m SalesModel) submitCmd() tea.Cmd {
	// Read the answers from the form itself; the bound fields belong to an
	// earlier copy of the model.
	var (
		ledger  = m.ledger
		saleID  = m.details.Sale.ID
		kind    = m.kind
		notes   = m.form.GetString("notes")
		confirm = m.form.GetBool("confirm")
	)

	method, _ := m.form.Get("method").(sale.PaymentMethod)
	amount, err := parseAmount(m.form.GetString("amount"))

	return func() tea.Msg {
		if err != nil {
			return saleActionMsg{saleID: saleID, err: err}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		switch kind {
		case formPayment:
			_, err := ledger.RecordPayment(ctx, saleID, sale.PaymentParams{Amount: amount, Method: method, Notes: notes})
			return saleActionMsg{saleID: saleID, result: "Payment of " + FormatAmount(amount) + " recorded.", err: err}
		case formDiscount:
			_, err := ledger.ApplyDiscount(ctx, saleID, amount)
			return saleActionMsg{saleID: saleID, result: "Discount updated.", err: err}
		case formTax:
			_, err := ledger.SetTax(ctx, saleID, amount)
			return saleActionMsg{saleID: saleID, result: "Tax updated.", err: err}
		case formDelete:
			if !confirm {
				return saleActionMsg{saleID: saleID, result: "Delete cancelled."}
			}

			if err := ledger.Delete(ctx, saleID); err != nil {
				return saleActionMsg{saleID: saleID, err: err}
			}

			return saleActionMsg{saleID: saleID, result: fmt.Sprintf("Sale #%d deleted.", saleID), deleted: true}
		}

		return saleActionMsg{saleID: saleID}
	}
}
