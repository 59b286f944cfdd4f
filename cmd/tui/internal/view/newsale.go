package view

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/supiri/internal/customer"
	"github.com/MrJamesThe3rd/supiri/internal/draft"
	"github.com/MrJamesThe3rd/supiri/internal/item"
	"github.com/MrJamesThe3rd/supiri/internal/sale"
)

type newSaleState int

const (
	newSaleLoading newSaleState = iota
	newSaleCustomer
	newSaleItems
	newSaleAddItem
	newSaleCheckout
	newSaleConfirm
	newSaleDone
)

// NewSaleModel walks a draft through the customer, items and checkout steps
// and commits it as a sale.
type NewSaleModel struct {
	CommonModel
	drafts    *draft.Service
	customers *customer.Service
	items     *item.Service

	state   newSaleState
	draft   *draft.Draft
	form    *huh.Form
	lines   table.Model
	catalog []*item.Item
	clients []*customer.Customer
	result  *sale.Details

	status string
}

func NewNewSaleModel(drafts *draft.Service, customers *customer.Service, items *item.Service) NewSaleModel {
	return NewSaleModel{
		drafts:    drafts,
		customers: customers,
		items:     items,
		lines: newTable([]table.Column{
			{Title: "Item", Width: 28},
			{Title: "Qty", Width: 6},
			{Title: "Price", Width: 12},
			{Title: "Total", Width: 12},
		}, 10),
	}
}

func (m NewSaleModel) Title() string { return "New Sale" }

func (m NewSaleModel) ShortHelp() string {
	switch m.state {
	case newSaleItems:
		return "a: add item | +/-: quantity | backspace: remove | n: checkout | b: customer | Esc: discard"
	case newSaleDone:
		return "Enter: new sale | Esc: back"
	}

	return "Esc: discard | Enter/Tab: navigate form"
}

func (m NewSaleModel) Init() tea.Cmd {
	return m.startCmd()
}

func (m NewSaleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case draftStartedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}

		m.clients, m.catalog = msg.customers, msg.items
		m.setDraft(msg.draft)
		m.status = ""

		return m.enterStep()

	case draftUpdatedMsg:
		if msg.err != nil {
			m.status = describeDraftError(msg.err)
			return m.enterStep()
		}

		m.setDraft(msg.draft)
		m.status = ""

		return m.enterStep()

	case checkoutReadyMsg:
		m.setDraft(msg.draft)
		m.status = ""

		return m.confirmForm()

	case draftCommittedMsg:
		if msg.err != nil {
			m.status = describeDraftError(msg.err)

			var commitErr *draft.CommitError
			if errors.As(msg.err, &commitErr) {
				return m.confirmForm()
			}

			return m.enterStep()
		}

		m.result = msg.details
		m.state = newSaleDone
		m.form = nil

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		return m.escape()
	}

	switch m.state {
	case newSaleItems:
		return m.updateItems(msg)
	case newSaleDone:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEnter {
			m.result = nil
			m.status = ""
			m.state = newSaleLoading

			return m, m.startCmd()
		}

		return m, nil
	case newSaleCustomer, newSaleAddItem, newSaleCheckout, newSaleConfirm:
		return m.updateForm(msg)
	}

	return m, nil
}

func (m NewSaleModel) escape() (tea.Model, tea.Cmd) {
	switch m.state {
	case newSaleAddItem:
		m.state = newSaleItems
		m.form = nil

		return m, nil
	case newSaleConfirm:
		return m.enterStep()
	case newSaleDone, newSaleLoading:
		return m, Back
	}

	if m.draft == nil {
		return m, Back
	}

	svc, id := m.drafts, m.draft.ID

	return m, tea.Sequence(func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		_ = svc.Discard(ctx, id)

		return nil
	}, Back)
}

func (m *NewSaleModel) setDraft(d *draft.Draft) {
	m.draft = d

	rows := make([]table.Row, 0, len(d.Lines))
	for _, l := range d.Lines {
		rows = append(rows, table.Row{
			l.Name,
			strconv.FormatInt(l.Quantity, 10),
			FormatAmount(l.Price),
			FormatAmount(l.Total),
		})
	}

	m.lines.SetRows(rows)

	if m.lines.Cursor() >= len(rows) {
		m.lines.SetCursor(max(0, len(rows)-1))
	}
}

// enterStep shows the screen for the draft's current step.
func (m NewSaleModel) enterStep() (tea.Model, tea.Cmd) {
	if m.draft == nil {
		m.state = newSaleLoading
		return m, nil
	}

	switch m.draft.Step {
	case draft.StepCustomer:
		return m.customerForm()
	case draft.StepItems:
		m.state = newSaleItems
		m.form = nil
		m.lines.Focus()

		return m, nil
	default:
		return m.checkoutForm()
	}
}

func (m NewSaleModel) customerForm() (tea.Model, tea.Cmd) {
	if len(m.clients) == 0 {
		m.status = "Add a customer first."
		m.state = newSaleCustomer
		m.form = nil

		return m, nil
	}

	options := make([]huh.Option[int64], len(m.clients))
	for i, c := range m.clients {
		label := c.Name
		if c.Phone != "" {
			label += "  " + c.Phone
		}

		options[i] = huh.NewOption(label, c.ID)
	}

	selectedID := m.draft.CustomerID

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().
				Key("customer").
				Title("Step 1 of 3: Customer").
				Options(options...).
				Height(min(10, len(options)+2)).
				Value(&selectedID),
		),
	).WithWidth(50).WithShowHelp(false)
	m.state = newSaleCustomer

	return m, m.form.Init()
}

func (m NewSaleModel) addItemForm() (tea.Model, tea.Cmd) {
	if len(m.catalog) == 0 {
		m.status = "The catalogue is empty."
		return m, nil
	}

	options := make([]huh.Option[int64], len(m.catalog))
	for i, it := range m.catalog {
		options[i] = huh.NewOption(fmt.Sprintf("%s  %s", it.Name, FormatAmount(it.Price)), it.ID)
	}

	var itemID int64

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().
				Key("item").
				Title("Add item").
				Options(options...).
				Height(min(12, len(options)+2)).
				Value(&itemID),
		),
	).WithWidth(50).WithShowHelp(false)
	m.state = newSaleAddItem

	return m, m.form.Init()
}

func (m NewSaleModel) checkoutForm() (tea.Model, tea.Cmd) {
	d := m.draft

	var (
		date     = FormatDate(d.SaleDate)
		discount = FormatPlain(d.Discount)
		tax      = FormatPlain(d.Tax)
		payment  = FormatPlain(d.PaymentAmount)
		method   = d.PaymentMethod
		notes    = d.Notes
	)

	amountValidator := func(v string) error {
		_, err := parseAmount(v)
		return err
	}

	methods := make([]huh.Option[sale.PaymentMethod], len(sale.Methods))
	for i, pm := range sale.Methods {
		methods[i] = huh.NewOption(methodLabel(pm), pm)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("date").
				Title("Sale date").
				Value(&date).
				Validate(func(v string) error {
					_, err := time.Parse(time.DateOnly, strings.TrimSpace(v))
					return err
				}),
			huh.NewInput().Key("discount").Title("Discount").Value(&discount).Validate(amountValidator),
			huh.NewInput().Key("tax").Title("Tax").Value(&tax).Validate(amountValidator),
			huh.NewInput().Key("payment").Title("Amount received now").Value(&payment).Validate(amountValidator),
			huh.NewSelect[sale.PaymentMethod]().Key("method").Title("Method").Options(methods...).Value(&method),
			huh.NewText().Key("notes").Title("Notes").Value(&notes),
		).Title("Step 3 of 3: Checkout"),
	).WithWidth(50).WithShowHelp(false)
	m.state = newSaleCheckout

	return m, m.form.Init()
}

func (m NewSaleModel) confirmForm() (tea.Model, tea.Cmd) {
	var ok bool

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Key("commit").
				Title(fmt.Sprintf("Save sale of %s for %s?", FormatAmount(m.draft.FinalAmount()), m.draft.CustomerName)).
				Affirmative("Save").
				Negative("Edit").
				Value(&ok),
		),
	).WithShowHelp(false)
	m.state = newSaleConfirm

	return m, m.form.Init()
}

func (m NewSaleModel) updateItems(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	line := m.selectedLine()

	switch keyMsg.String() {
	case "a":
		return m.addItemForm()
	case "n", "enter":
		return m, m.updateCmd(m.drafts.Next)
	case "b":
		return m, m.updateCmd(m.drafts.Back)
	case "+", "=":
		if line != nil {
			return m, m.lineCmd(m.drafts.Increment, line.ItemID)
		}
	case "-":
		if line != nil {
			return m, m.lineCmd(m.drafts.Decrement, line.ItemID)
		}
	case "backspace", "delete":
		if line != nil {
			return m, m.lineCmd(m.drafts.RemoveItem, line.ItemID)
		}
	}

	var cmd tea.Cmd
	m.lines, cmd = m.lines.Update(msg)

	return m, cmd
}

func (m NewSaleModel) selectedLine() *draft.Line {
	idx := m.lines.Cursor()
	if m.draft == nil || idx < 0 || idx >= len(m.draft.Lines) {
		return nil
	}

	return &m.draft.Lines[idx]
}

func (m NewSaleModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	svc, id, f := m.drafts, m.draft.ID, m.form

	switch m.state {
	case newSaleCustomer:
		customerID, _ := f.Get("customer").(int64)

		return m, m.updateCmd(func(ctx context.Context, id uuid.UUID) (*draft.Draft, error) {
			if _, err := svc.SelectCustomer(ctx, id, customerID); err != nil {
				return nil, err
			}

			return svc.Next(ctx, id)
		})

	case newSaleAddItem:
		itemID, _ := f.Get("item").(int64)
		m.form = nil

		return m, m.lineCmd(svc.AddItem, itemID)

	case newSaleCheckout:
		a, err := adjustmentsFrom(f)
		if err != nil {
			m.status = describeDraftError(err)
			return m.checkoutForm()
		}

		return m, func() tea.Msg {
			ctx, cancel := DbCtx()
			defer cancel()

			d, err := svc.SetAdjustments(ctx, id, a)
			if err != nil {
				return draftUpdatedMsg{err: err}
			}

			return checkoutReadyMsg{draft: d}
		}

	case newSaleConfirm:
		if !f.GetBool("commit") {
			return m.checkoutForm()
		}

		return m, func() tea.Msg {
			ctx, cancel := DbCtx()
			defer cancel()

			details, err := svc.Commit(ctx, id)

			return draftCommittedMsg{details: details, err: err}
		}
	}

	return m, cmd
}

func adjustmentsFrom(f *huh.Form) (draft.Adjustments, error) {
	var (
		a   draft.Adjustments
		err error
	)

	a.SaleDate, err = time.Parse(time.DateOnly, strings.TrimSpace(f.GetString("date")))
	if err != nil {
		return a, fmt.Errorf("%w: sale date must be YYYY-MM-DD", sale.ErrInvalidArgument)
	}

	for key, dst := range map[string]*int64{"discount": &a.Discount, "tax": &a.Tax, "payment": &a.PaymentAmount} {
		if *dst, err = parseAmount(f.GetString(key)); err != nil {
			return a, fmt.Errorf("%w: %s: %w", sale.ErrInvalidArgument, key, err)
		}
	}

	a.PaymentMethod, _ = f.Get("method").(sale.PaymentMethod)
	a.Notes = strings.TrimSpace(f.GetString("notes"))

	return a, nil
}

func describeDraftError(err error) string {
	var commitErr *draft.CommitError

	switch {
	case errors.As(err, &commitErr):
		return fmt.Sprintf("Sale #%d was saved but stopped at %s: %v. Save again to finish it.",
			commitErr.SaleID, commitErr.Stage, commitErr.Err)
	case errors.Is(err, draft.ErrNotFound):
		return "This draft expired. Press Esc and start again."
	case errors.Is(err, sale.ErrInvalidArgument):
		return fmt.Sprintf("Rejected: %v", err)
	}

	return fmt.Sprintf("Error: %v", err)
}

func (m NewSaleModel) View() string {
	var content string

	switch m.state {
	case newSaleLoading:
		content = "Starting a new sale..."
	case newSaleDone:
		content = m.doneView()
	case newSaleItems:
		content = lipgloss.JoinVertical(lipgloss.Left,
			"Step 2 of 3: Items for "+activeStyle(m.draft.CustomerName),
			"",
			m.lines.View(),
			"",
			"Subtotal: "+FormatAmount(m.draft.Subtotal()),
		)
	default:
		content = m.summaryView()
		if m.form != nil {
			content = lipgloss.JoinHorizontal(lipgloss.Top, content, "  ", m.form.View())
		}
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(m.status) + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m NewSaleModel) summaryView() string {
	d := m.draft
	if d == nil {
		return ""
	}

	customerName := d.CustomerName
	if customerName == "" {
		customerName = "-"
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Render(fmt.Sprintf(
			"Customer: %s\nItems:    %d\nSubtotal: %s\nDiscount: %s\nTax:      %s\nTotal:    %s\nPaying:   %s (%s)\nStatus:   %s",
			customerName,
			len(d.Lines),
			FormatAmount(d.Subtotal()),
			FormatAmount(d.Discount),
			FormatAmount(d.Tax),
			FormatAmount(d.FinalAmount()),
			FormatAmount(d.PaymentAmount),
			methodLabel(d.PaymentMethod),
			formatStatus(d.PaymentStatus()),
		))
}

func (m NewSaleModel) doneView() string {
	if m.result == nil {
		return "Press Enter to start another sale."
	}

	s := m.result.Sale

	return fmt.Sprintf(
		"Sale #%d saved.\n\nTotal:   %s\nPaid:    %s\nBalance: %s\nStatus:  %s\n\nPress Enter to start another sale.",
		s.ID,
		FormatAmount(s.FinalAmount),
		FormatAmount(s.AmountPaid),
		FormatAmount(s.FinalAmount-s.AmountPaid),
		formatStatus(s.PaymentStatus),
	)
}

// Messages

type draftStartedMsg struct {
	draft     *draft.Draft
	customers []*customer.Customer
	items     []*item.Item
	err       error
}

func (m NewSaleModel) startCmd() tea.Cmd {
	drafts, customers, items := m.drafts, m.customers, m.items

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		cs, err := customers.List(ctx)
		if err != nil {
			return draftStartedMsg{err: err}
		}

		its, err := items.List(ctx)
		if err != nil {
			return draftStartedMsg{err: err}
		}

		d, err := drafts.Start(ctx)

		return draftStartedMsg{draft: d, customers: cs, items: its, err: err}
	}
}

type draftUpdatedMsg struct {
	draft *draft.Draft
	err   error
}

type checkoutReadyMsg struct {
	draft *draft.Draft
}

type draftCommittedMsg struct {
	details *sale.Details
	err     error
}

func (m NewSaleModel) updateCmd(fn func(ctx context.Context, id uuid.UUID) (*draft.Draft, error)) tea.Cmd {
	id := m.draft.ID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		d, err := fn(ctx, id)

		return draftUpdatedMsg{draft: d, err: err}
	}
}

func (m NewSaleModel) lineCmd(fn func(ctx context.Context, id uuid.UUID, itemID int64) (*draft.Draft, error), itemID int64) tea.Cmd {
	return m.updateCmd(func(ctx context.Context, id uuid.UUID) (*draft.Draft, error) {
		return fn(ctx, id, itemID)
	})
}
