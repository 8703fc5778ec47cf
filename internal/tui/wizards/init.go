// Package wizards holds the interactive terminal flows of sfdeploy.
package wizards

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/vvka-141/sfdeploy/internal/scaffold"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

// InitResult holds the result of the init wizard.
type InitResult struct {
	Cancelled bool
	Values    scaffold.Values
}

type initStep int

const (
	initStepAuth initStep = iota
	initStepConnection
	initStepSchemas
	initStepConfirm
	initStepDone
)

type authOption struct {
	method      sfdeploy.AuthMethod
	name        string
	description string
}

var authOptions = []authOption{
	{sfdeploy.AuthMethodPassword, "Password", "SNOWFLAKE_PASSWORD from .env or the environment"},
	{sfdeploy.AuthMethodKeyPair, "Key pair (JWT)", "RSA private key file, passphrase in SNOWFLAKE_PRIVATE_KEY_PASSPHRASE"},
}

// Connection form field order. The key path field exists for key pair only.
const (
	fieldAccount = iota
	fieldUser
	fieldDatabase
	fieldRole
	fieldWarehouse
	fieldPrivateKeyPath
)

const (
	fieldTablesSchema = iota
	fieldProcsSchema
	fieldTasksSchema
)

// InitWizard collects the connection block and folder schemas written into
// sfdeploy.yaml by sfdeploy init.
type InitWizard struct {
	step    initStep
	values  scaffold.Values
	authIdx int

	inputs        []textinput.Model
	focusIndex    int
	validationErr string

	result InitResult

	width  int
	height int

	styles wizardStyles
	keys   wizardKeys
}

// NewInitWizard creates a wizard prefilled with values.
func NewInitWizard(values scaffold.Values) InitWizard {
	w := InitWizard{
		step:   initStepAuth,
		values: values,
		width:  80,
		height: 24,
		styles: defaultWizardStyles(),
		keys:   defaultWizardKeys(),
	}
	for i, opt := range authOptions {
		if opt.method == values.AuthMethod {
			w.authIdx = i
		}
	}
	return w
}

// Init implements tea.Model.
func (w InitWizard) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (w InitWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		return w, nil

	case tea.KeyMsg:
		if key.Matches(msg, w.keys.Quit) {
			w.result.Cancelled = true
			return w, tea.Quit
		}

		switch w.step {
		case initStepAuth:
			return w.updateAuth(msg)
		case initStepConnection, initStepSchemas:
			return w.updateInputForm(msg)
		case initStepConfirm:
			return w.updateConfirm(msg)
		}
	}

	return w, nil
}

func (w InitWizard) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Up):
		if w.authIdx > 0 {
			w.authIdx--
		}
	case key.Matches(msg, w.keys.Down):
		if w.authIdx < len(authOptions)-1 {
			w.authIdx++
		}
	case key.Matches(msg, w.keys.Select):
		w.values.AuthMethod = authOptions[w.authIdx].method
		w.step = initStepConnection
		return w, w.initInputs()
	case key.Matches(msg, w.keys.Back):
		w.result.Cancelled = true
		return w, tea.Quit
	}
	return w, nil
}

func newInput(value, placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.SetValue(value)
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 40
	return in
}

func (w *InitWizard) initInputs() tea.Cmd {
	w.focusIndex = 0
	w.validationErr = ""

	switch w.step {
	case initStepConnection:
		w.inputs = []textinput.Model{
			newInput(w.values.Account, "orgname-account", 128),
			newInput(w.values.User, "DEPLOY_USER", 128),
			newInput(w.values.Database, "ANALYTICS", 255),
			newInput(w.values.Role, "DEPLOYER", 255),
			newInput(w.values.Warehouse, "DEPLOY_WH", 255),
		}
		if w.values.AuthMethod == sfdeploy.AuthMethodKeyPair {
			w.inputs = append(w.inputs, newInput(w.values.PrivateKeyPath, "keys/rsa_key.p8", 512))
		}
	case initStepSchemas:
		w.inputs = []textinput.Model{
			newInput(w.values.TablesSchema, "RPT", 255),
			newInput(w.values.ProcsSchema, "XFRM", 255),
			newInput(w.values.TasksSchema, "XFRM", 255),
		}
	}

	return w.inputs[0].Focus()
}

func (w InitWizard) updateInputForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Tab), msg.String() == "down":
		if w.focusIndex < len(w.inputs)-1 {
			w.inputs[w.focusIndex].Blur()
			w.focusIndex++
			return w, w.inputs[w.focusIndex].Focus()
		}
	case msg.String() == "shift+tab", msg.String() == "up":
		if w.focusIndex > 0 {
			w.inputs[w.focusIndex].Blur()
			w.focusIndex--
			return w, w.inputs[w.focusIndex].Focus()
		}
	case key.Matches(msg, w.keys.Select):
		if w.focusIndex < len(w.inputs)-1 {
			w.inputs[w.focusIndex].Blur()
			w.focusIndex++
			return w, w.inputs[w.focusIndex].Focus()
		}
		if err := w.submitForm(); err != nil {
			w.validationErr = err.Error()
			return w, nil
		}
		if w.step == initStepConnection {
			w.step = initStepSchemas
			return w, w.initInputs()
		}
		w.step = initStepConfirm
		return w, nil
	case key.Matches(msg, w.keys.Back):
		if w.step == initStepSchemas {
			w.step = initStepConnection
			return w, w.initInputs()
		}
		w.step = initStepAuth
		return w, nil
	default:
		w.validationErr = ""
		var cmd tea.Cmd
		w.inputs[w.focusIndex], cmd = w.inputs[w.focusIndex].Update(msg)
		return w, cmd
	}
	return w, nil
}

func (w *InitWizard) value(i int) string {
	return strings.TrimSpace(w.inputs[i].Value())
}

// submitForm validates the current form and copies it into values.
func (w *InitWizard) submitForm() error {
	switch w.step {
	case initStepConnection:
		v := w.values
		v.Account = w.value(fieldAccount)
		v.User = w.value(fieldUser)
		v.Database = strings.ToUpper(w.value(fieldDatabase))
		v.Role = strings.ToUpper(w.value(fieldRole))
		v.Warehouse = strings.ToUpper(w.value(fieldWarehouse))
		v.PrivateKeyPath = ""
		if v.AuthMethod == sfdeploy.AuthMethodKeyPair {
			v.PrivateKeyPath = w.value(fieldPrivateKeyPath)
		}

		switch {
		case v.Account == "":
			return errors.New("account is required")
		case v.User == "":
			return errors.New("user is required")
		case v.Database == "":
			return errors.New("database is required")
		case v.AuthMethod == sfdeploy.AuthMethodKeyPair && v.PrivateKeyPath == "":
			return errors.New("private key path is required for key pair authentication")
		}
		if err := v.Validate(); err != nil {
			return firstLine(err)
		}
		w.values = v

	case initStepSchemas:
		v := w.values
		v.TablesSchema = strings.ToUpper(w.value(fieldTablesSchema))
		v.ProcsSchema = strings.ToUpper(w.value(fieldProcsSchema))
		v.TasksSchema = strings.ToUpper(w.value(fieldTasksSchema))
		if err := v.Validate(); err != nil {
			return firstLine(err)
		}
		w.values = v
	}
	return nil
}

// firstLine keeps form errors to one line; errors.Join separates with newlines.
func firstLine(err error) error {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return errors.New(strings.TrimSuffix(msg, ": "+sfdeploy.ErrInvalidConfig.Error()))
}

func (w InitWizard) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Select):
		w.result.Values = w.values
		w.step = initStepDone
		return w, tea.Quit
	case key.Matches(msg, w.keys.Back):
		w.step = initStepSchemas
		return w, w.initInputs()
	}
	return w, nil
}

// View implements tea.Model.
func (w InitWizard) View() string {
	var b strings.Builder

	b.WriteString(w.styles.Title.Render("sfdeploy init - " + w.values.ProjectName))
	b.WriteString("\n")

	switch w.step {
	case initStepAuth:
		b.WriteString(w.viewAuth())
	case initStepConnection:
		labels := []string{"Account:", "User:", "Database:", "Role:", "Warehouse:", "Private key path:"}
		b.WriteString(w.viewForm("Snowflake connection", labels))
	case initStepSchemas:
		b.WriteString(w.viewForm("Target schema per folder", []string{
			"dbscripts2/Tables:", "dbscripts2/StoredProcs:", "dbscripts2/Tasks:",
		}))
	case initStepConfirm:
		b.WriteString(w.viewConfirm())
	}

	return b.String()
}

func (w InitWizard) viewAuth() string {
	var b strings.Builder

	b.WriteString(w.styles.Subtitle.Render("How does the deploy user authenticate?"))
	b.WriteString("\n\n")

	for i, opt := range authOptions {
		cursor := "  "
		style := w.styles.Unselected
		symbol := "○"
		if i == w.authIdx {
			cursor = ""
			style = w.styles.Selected
			symbol = "●"
		}
		b.WriteString(cursor)
		b.WriteString(style.Render(symbol + " " + opt.name))
		b.WriteString("\n")
		b.WriteString(w.styles.Description.Render(opt.description))
		b.WriteString("\n")
	}

	b.WriteString(w.styles.Help.Render("\n↑/↓ navigate • enter select • esc cancel"))
	return b.String()
}

func (w InitWizard) viewForm(subtitle string, labels []string) string {
	var b strings.Builder

	b.WriteString(w.styles.Subtitle.Render(subtitle))
	b.WriteString("\n\n")

	for i, input := range w.inputs {
		style := w.styles.Box
		if i == w.focusIndex {
			style = w.styles.FocusedBox
		}
		b.WriteString(w.styles.Label.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(style.Render(input.View()))
		b.WriteString("\n\n")
	}

	if w.validationErr != "" {
		b.WriteString(w.styles.Error.Render("Error: " + w.validationErr))
		b.WriteString("\n\n")
	}

	b.WriteString(w.styles.Help.Render("tab/↓ next • shift+tab/↑ prev • enter submit • esc back"))
	return b.String()
}

func (w InitWizard) viewConfirm() string {
	var b strings.Builder
	v := w.values

	b.WriteString(w.styles.Success.Render("✓ Ready to create project"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Account:   %s\n", v.Account)
	fmt.Fprintf(&b, "User:      %s (%s)\n", v.User, v.AuthMethod)
	fmt.Fprintf(&b, "Database:  %s\n", v.Database)
	fmt.Fprintf(&b, "Role:      %s\n", v.Role)
	fmt.Fprintf(&b, "Warehouse: %s\n", v.Warehouse)
	fmt.Fprintf(&b, "Schemas:   tables %s, procedures %s, tasks %s\n", v.TablesSchema, v.ProcsSchema, v.TasksSchema)

	b.WriteString(w.styles.Help.Render("\nenter create project • esc back"))
	return b.String()
}

// Result returns the wizard result.
func (w InitWizard) Result() InitResult {
	return w.result
}

// RunInitWizard executes the init wizard on the terminal.
func RunInitWizard(values scaffold.Values) (InitResult, error) {
	p := tea.NewProgram(NewInitWizard(values), tea.WithAltScreen())

	model, err := p.Run()
	if err != nil {
		return InitResult{Cancelled: true}, err
	}
	return model.(InitWizard).Result(), nil
}
