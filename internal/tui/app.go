// Package tui is the terminal front end: the transfer form, its toasts and
// the transfer history.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"github.com/jask/ethsend/internal/database/repository"
	"github.com/jask/ethsend/internal/transfer"
	"github.com/jask/ethsend/internal/wallet"
)

const (
	fieldRecipient = iota
	fieldAmount
	fieldCount
)

const (
	formWidth  = 48
	toastWidth = 40
)

// Submitter sends a transfer form. transfer.Controller implements it.
type Submitter interface {
	Submit(ctx context.Context, form transfer.Form) transfer.Result
}

// HistoryLister lists past transfers, newest first.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]repository.Transfer, error)
}

// Options holds presentation settings.
type Options struct {
	ToastDuration time.Duration
	HistoryLimit  int
	// WalletStatus is shown under the title, e.g. the detected provider URL.
	WalletStatus string
}

// App is the bubbletea model for the transfer form.
type App struct {
	ctx       context.Context
	cancel    context.CancelFunc
	submitter Submitter
	history   HistoryLister
	opts      Options
	keys      keyMap
	help      help.Model

	state     appState
	inputs    []textinput.Model
	focus     int
	spinner   spinner.Model
	loading   bool
	submitted bool
	quitting  bool
	errs      transfer.FieldErrors

	toasts    []toast
	toastSeq  int
	transfers []repository.Transfer
	status    string

	width  int
	height int
}

type appState string

const (
	viewForm    appState = "form"
	viewHistory appState = "history"
)

type toast struct {
	id int
	n  transfer.Notification
}

// New builds the form. history may be nil when the journal is disabled.
// Quitting cancels the context handed to submitter.
func New(ctx context.Context, submitter Submitter, history HistoryLister, opts Options) *App {
	ctx, cancel := context.WithCancel(ctx)
	if opts.ToastDuration <= 0 {
		opts.ToastDuration = 3 * time.Second
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	recipient := newInput("Your recipient address")
	recipient.Focus()
	amount := newInput("Your amount")

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(colorText)

	return &App{
		ctx:       ctx,
		cancel:    cancel,
		submitter: submitter,
		history:   history,
		opts:      opts,
		keys:      newKeyMap(),
		help:      help.New(),
		state:     viewForm,
		inputs:    []textinput.Model{recipient, amount},
		spinner:   sp,
	}
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.Width = formWidth - 4
	ti.CharLimit = 128
	return ti
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// Form returns the current field values.
func (a *App) Form() transfer.Form {
	return transfer.Form{
		Recipient: a.inputs[fieldRecipient].Value(),
		Amount:    a.inputs[fieldAmount].Value(),
	}
}

// Loading reports whether a submission is in flight.
func (a *App) Loading() bool { return a.loading }

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.help.Width = m.Width
		return a, nil
	case tea.KeyMsg:
		if key.Matches(m, a.keys.Quit) {
			return a, a.quit()
		}
		if a.state == viewHistory {
			return a, a.handleHistoryKey(m)
		}
		return a, a.handleFormKey(m)
	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(m)
		return a, cmd
	case submitDoneMsg:
		cmd := a.finishSubmit(m.Result)
		if a.quitting {
			return a, tea.Quit
		}
		return a, cmd
	case toastExpiredMsg:
		a.dropToast(m.id)
		return a, nil
	case historyMsg:
		a.transfers = []repository.Transfer(m)
		a.status = ""
		return a, nil
	case errMsg:
		a.status = "error: " + m.Error()
		return a, nil
	}
	return a, a.updateInput(msg)
}

func (a *App) handleFormKey(m tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(m, a.keys.Submit):
		return a.submit()
	case key.Matches(m, a.keys.Next):
		return a.setFocus((a.focus + 1) % fieldCount)
	case key.Matches(m, a.keys.Prev):
		return a.setFocus((a.focus + fieldCount - 1) % fieldCount)
	case key.Matches(m, a.keys.Dismiss):
		a.toasts = nil
		return nil
	case key.Matches(m, a.keys.History):
		a.state = viewHistory
		return a.loadHistory()
	}
	return a.updateInput(m)
}

func (a *App) handleHistoryKey(m tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(m, a.keys.Dismiss), key.Matches(m, a.keys.History):
		if len(a.toasts) > 0 && key.Matches(m, a.keys.Dismiss) {
			a.toasts = nil
			return nil
		}
		a.state = viewForm
	case key.Matches(m, a.keys.Reload):
		return a.loadHistory()
	}
	return nil
}

// quit cancels any submission in flight and exits once it has reported
// back, so its outcome reaches the journal.
func (a *App) quit() tea.Cmd {
	a.cancel()
	if a.loading {
		a.quitting = true
		a.status = "canceling transfer..."
		return nil
	}
	return tea.Quit
}

func (a *App) setFocus(i int) tea.Cmd {
	a.inputs[a.focus].Blur()
	a.focus = i
	return a.inputs[a.focus].Focus()
}

// updateInput forwards msg to the focused field and sanitizes the result.
func (a *App) updateInput(msg tea.Msg) tea.Cmd {
	if a.state != viewForm {
		return nil
	}
	in := &a.inputs[a.focus]
	before := in.Value()
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	if v := in.Value(); v != before {
		if clean, pos := transfer.SanitizeAt(v, in.Position()); clean != v {
			in.SetValue(clean)
			in.SetCursor(pos)
		}
		if a.submitted {
			a.errs = a.Form().Validate()
		}
	}
	return cmd
}

func (a *App) submit() tea.Cmd {
	if a.loading {
		return nil
	}
	form := a.Form()
	a.submitted = true
	a.errs = form.Validate()
	if !a.errs.Empty() {
		return nil
	}
	a.loading = true
	ctx, submitter := a.ctx, a.submitter
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		return submitDoneMsg{Result: submitter.Submit(ctx, form)}
	})
}

func (a *App) finishSubmit(res transfer.Result) tea.Cmd {
	a.loading = false
	if res.Outcome == transfer.OutcomeInvalid {
		a.errs = res.Fields
		return nil
	}
	if res.ClearForm() {
		for i := range a.inputs {
			a.inputs[i].SetValue("")
		}
		a.submitted = false
		a.errs = transfer.FieldErrors{}
	}
	cmds := make([]tea.Cmd, 0, len(res.Notifications)+1)
	for _, n := range res.Notifications {
		cmds = append(cmds, a.pushToast(n))
	}
	if res.TransferID != "" && a.history != nil {
		cmds = append(cmds, a.loadHistory())
	}
	return tea.Batch(cmds...)
}

func (a *App) pushToast(n transfer.Notification) tea.Cmd {
	a.toastSeq++
	id := a.toastSeq
	a.toasts = append(a.toasts, toast{id: id, n: n})
	return tea.Tick(a.opts.ToastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (a *App) dropToast(id int) {
	for i, t := range a.toasts {
		if t.id == id {
			a.toasts = append(a.toasts[:i], a.toasts[i+1:]...)
			return
		}
	}
}

func (a *App) loadHistory() tea.Cmd {
	if a.history == nil {
		a.status = "history is disabled (no database configured)"
		return nil
	}
	ctx, lister, limit := a.ctx, a.history, a.opts.HistoryLimit
	return func() tea.Msg {
		list, err := lister.List(ctx, limit)
		if err != nil {
			return errMsg{err}
		}
		return historyMsg(list)
	}
}

// messages
type submitDoneMsg struct {
	Result transfer.Result
}

type toastExpiredMsg struct{ id int }

type historyMsg []repository.Transfer

type errMsg struct{ error }

func (a *App) View() string {
	var body string
	if a.state == viewHistory {
		body = a.renderHistory()
	} else {
		body = a.renderForm()
	}
	return a.renderToasts(body)
}

func (a *App) renderForm() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("transfer balance"))
	b.WriteString("\n")
	if a.opts.WalletStatus != "" {
		b.WriteString(mutedStyle.Render(a.opts.WalletStatus))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	a.renderField(&b, fieldRecipient, "Recipient Address", a.errs.Recipient)
	b.WriteString("\n")
	a.renderField(&b, fieldAmount, "Amount", a.errs.Amount)
	b.WriteString("\n")
	if a.loading {
		b.WriteString(busyButtonStyle.Render(a.spinner.View() + " Please wait..."))
	} else {
		b.WriteString(buttonStyle.Render("Transfer"))
	}
	b.WriteString("\n\n")
	b.WriteString(a.help.View(a.keys))
	if a.status != "" {
		b.WriteString("\n" + mutedStyle.Render(a.status))
	}
	return b.String()
}

func (a *App) renderField(b *strings.Builder, i int, label, errText string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString("\n")
	b.WriteString(inputBorder(i == a.focus, errText != "").Width(formWidth).Render(a.inputs[i].View()))
	b.WriteString("\n")
	if errText != "" {
		b.WriteString(fieldErrorStyle.Render(errText))
		b.WriteString("\n")
	}
}

func (a *App) renderHistory() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("transfer history"))
	b.WriteString("\n\n")
	if len(a.transfers) == 0 {
		b.WriteString(mutedStyle.Render("No transfers yet."))
		b.WriteString("\n")
	}
	for _, t := range a.transfers {
		b.WriteString(formatTransfer(t))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(a.help.View(historyKeyMap{a.keys}))
	if a.status != "" {
		b.WriteString("\n" + mutedStyle.Render(a.status))
	}
	return b.String()
}

func formatTransfer(t repository.Transfer) string {
	status := t.Status
	style := mutedStyle
	switch t.Status {
	case repository.StatusConfirmed:
		style = lipgloss.NewStyle().Foreground(colorSuccess)
	case repository.StatusFailed:
		style = lipgloss.NewStyle().Foreground(colorError)
		if t.FailureKind != nil {
			status += " (" + *t.FailureKind + ")"
		}
	}
	line := fmt.Sprintf("%s  %-28s  %s ETH -> %s",
		t.CreatedAt.Local().Format("2006-01-02 15:04"), style.Render(status), transfer.JournalAmount(t), t.Recipient)
	if t.FromAddress != nil {
		line += mutedStyle.Render(" from " + wallet.ShortAddress(common.HexToAddress(*t.FromAddress)))
	}
	if t.TxHash != nil {
		line += "  " + mutedStyle.Render(*t.TxHash)
	}
	return line
}

// renderToasts stacks the live toasts at the top center of body.
func (a *App) renderToasts(body string) string {
	if len(a.toasts) == 0 {
		return body
	}
	boxes := make([]string, 0, len(a.toasts))
	for _, t := range a.toasts {
		boxes = append(boxes, renderToast(t.n))
	}
	stack := lipgloss.JoinVertical(lipgloss.Left, boxes...)
	if a.width == 0 {
		return stack + "\n" + body
	}
	lines := splitLines(body)
	for len(lines) < a.height {
		lines = append(lines, "")
	}
	x := (a.width - maxLineWidth(splitLines(stack))) / 2
	if x < 0 {
		x = 0
	}
	return overlayAt(strings.Join(lines, "\n"), stack, x, 0, a.width)
}

func renderToast(n transfer.Notification) string {
	color := colorInfo
	switch n.Level {
	case transfer.LevelSuccess:
		color = colorSuccess
	case transfer.LevelError:
		color = colorError
	case transfer.LevelWarning:
		color = colorWarning
	}
	text := lipgloss.NewStyle().Bold(true).Foreground(color).Render(n.Title)
	if n.Body != "" {
		text += "\n" + lipgloss.NewStyle().Foreground(colorOverlay1).Render(n.Body)
	}
	return toastStyle.BorderForeground(color).Render(text)
}
