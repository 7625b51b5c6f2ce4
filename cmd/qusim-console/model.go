package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/quforge/qusim/client"
	"github.com/quforge/qusim/qasm"
)

// focus represents which panel/mode has keyboard input.
type focus int

const (
	focusState focus = iota
	focusMenu
	focusSelectTarget
	focusInputParam
)

// Model represents the TUI application state.
type Model struct {
	cl        *client.Client
	handle    int
	numQubits int

	amps    []complex128 // last fetched state vector, nil when too wide
	history []string
	width   int
	height  int

	cursorQubit int
	focus       focus
	statusMsg   string

	// Menu state
	menuCat  int
	menuItem int

	// Pending operation state
	pending     menuItem
	targetQubit int
	params      []float64
	paramInput  textinput.Model
}

func initialModel(cl *client.Client, handle, numQubits int) Model {
	ti := textinput.New()
	ti.Placeholder = "pi/2"
	ti.CharLimit = 120
	ti.Width = 32

	m := Model{
		cl:         cl,
		handle:     handle,
		numQubits:  numQubits,
		focus:      focusState,
		paramInput: ti,
	}
	m.refresh()
	m.logf("register %d allocated, %d qubits", handle, numQubits)
	return m
}

// refresh re-fetches the state vector after an operation.
func (m *Model) refresh() {
	st, err := m.cl.Peek(m.handle)
	if err != nil {
		m.statusMsg = err.Error()
		return
	}
	m.amps = st
}

func (m *Model) logf(format string, args ...any) {
	m.history = append([]string{fmt.Sprintf(format, args...)}, m.history...)
	if len(m.history) > maxLogLen {
		m.history = m.history[:maxLogLen]
	}
}

func (m *Model) failf(err error) {
	m.statusMsg = err.Error()
	m.logf("error: %v", err)
}

// clearPending drops any half-finished operation state.
func (m *Model) clearPending() {
	m.pending = menuItem{}
	m.params = nil
	m.paramInput.SetValue("")
	m.paramInput.Blur()
	m.focus = focusState
}

// ──────────────────────────── Operation dispatch ────────────────────────────

// apply runs the pending operation against the daemon and refreshes the
// state view.
func (m *Model) apply(item menuItem, target int) {
	var err error
	switch item.op {
	case opGate1Q:
		err = m.cl.Transform1Q(m.handle, item.ftype, 1, m.cursorQubit, m.params...)
		if err == nil {
			m.logf("%s q[%d]%s", item.symbol, m.cursorQubit, paramSuffix(m.params))
		}

	case opGate2Q:
		err = m.applyControlled(item.ftype, qasm.FTypeNull, m.cursorQubit, target)
		if err == nil {
			m.logf("%s c=q[%d] t=q[%d]", item.name, m.cursorQubit, target)
		}

	case opCU:
		err = m.applyControlled(qasm.FTypeCU, item.ftype, m.cursorQubit, target)
		if err == nil {
			m.logf("%s c=q[%d] t=q[%d]%s", item.name, m.cursorQubit, target, paramSuffix(m.params))
		}

	case opSwap:
		err = m.applySwap(m.cursorQubit, target)
		if err == nil {
			m.logf("SWAP q[%d] q[%d]", m.cursorQubit, target)
		}

	case opCSwap:
		err = m.applyCSwap(m.cursorQubit, target)
		if err == nil {
			m.logf("CSWAP c=q[%d] pair=q[%d],q[%d]", m.cursorQubit, target, target+1)
		}

	case opFMapZ:
		err = m.cl.FeatureMap(m.handle, 1, qasm.EntangLinear, qasm.FMapPauliZ, m.params)
		if err == nil {
			m.logf("feature map Z %v", m.params)
		}

	case opFMapZZ:
		err = m.cl.FeatureMap(m.handle, 1, qasm.EntangLinear, qasm.FMapPauliZZ, m.params)
		if err == nil {
			m.logf("feature map ZZ %v", m.params)
		}

	case opQNet:
		err = m.cl.QNet(m.handle, 1, qasm.EntangLinear, qasm.QNetRealAmpl, m.params)
		if err == nil {
			m.logf("real-amplitude ansatz, %d params", len(m.params))
		}

	case opMeasure:
		var out client.MeasureOutcome
		out, err = m.cl.Measure(m.handle, -1, 0, true, true)
		if err == nil {
			m.logf("measure: |%0*b⟩  p=%.4f", m.numQubits, out.State, out.Prob)
			m.statusMsg = fmt.Sprintf("measured |%0*b⟩ (p=%.4f)", m.numQubits, out.State, out.Prob)
		}

	case opMeasureQubit:
		var out client.MeasureOutcome
		out, err = m.cl.Measure(m.handle, m.cursorQubit, 1, true, true)
		if err == nil {
			m.logf("measure q[%d]: %d  p=%.4f", m.cursorQubit, out.State, out.Prob)
			m.statusMsg = fmt.Sprintf("q[%d] → %d (p=%.4f)", m.cursorQubit, out.State, out.Prob)
		}

	case opExpectZ:
		var v float64
		v, err = m.cl.Expectation(m.handle, m.cursorQubit, 1, qasm.ObsOpPauliZ, -1)
		if err == nil {
			m.logf("⟨Z⟩ q[%d] = %+.6f", m.cursorQubit, v)
			m.statusMsg = fmt.Sprintf("⟨Z⟩ on q[%d] = %+.6f", m.cursorQubit, v)
		}

	case opReset:
		err = m.cl.Reset(m.handle)
		if err == nil {
			m.logf("register reset")
		}
	}

	if err != nil {
		m.failf(err)
	}
	m.refresh()
	m.clearPending()
}

// applyControlled routes a controlled gate: adjacent qubits use the
// plain 2-qubit form, anything farther goes out as a long-range gate.
func (m *Model) applyControlled(kind, base qasm.FType, c, t int) error {
	crng, trng := qasm.NewRange(c, c), qasm.NewRange(t, t)
	span := c - t
	if span < 0 {
		span = -span
	}
	lo := min(c, t)

	if span == 1 {
		if kind == qasm.FTypeCU {
			return m.cl.TransformCU(m.handle, base, crng, trng, lo, m.params...)
		}
		return m.cl.Transform2Q(m.handle, kind, crng, trng, lo, m.params...)
	}

	fu := base
	switch kind {
	case qasm.FTypeCX:
		fu = qasm.FTypeX
	case qasm.FTypeCY:
		fu = qasm.FTypeY
	case qasm.FTypeCZ:
		fu = qasm.FTypeZ
	}
	return m.cl.TransformN(m.handle, qasm.FTypeMCSLRU, 1<<(span+1),
		crng, trng, fu, lo, m.params...)
}

// applySwap swaps two qubits: a pair swap when adjacent, otherwise the
// CX conjugation across the gap.
func (m *Model) applySwap(a, b int) error {
	lo, hi := min(a, b), max(a, b)
	if hi-lo == 1 {
		return m.cl.Swap(m.handle, 4, lo)
	}
	if err := m.applyControlled(qasm.FTypeCX, qasm.FTypeNull, hi, lo); err != nil {
		return err
	}
	if err := m.applyControlled(qasm.FTypeCX, qasm.FTypeNull, lo, hi); err != nil {
		return err
	}
	return m.applyControlled(qasm.FTypeCX, qasm.FTypeNull, hi, lo)
}

// applyCSwap swaps the pair (t, t+1) under the cursor control qubit.
func (m *Model) applyCSwap(control, t int) error {
	if t+1 >= m.numQubits || control == t || control == t+1 {
		return fmt.Errorf("controlled swap needs a free adjacent pair below or above the control")
	}
	crng := qasm.NewRange(control, control)
	trng := qasm.NewRange(t, t+1)
	var fsize, flsq int
	if control > t+1 {
		fsize = 1 << (control - t + 1)
		flsq = t
	} else {
		fsize = 1 << (t + 2 - control)
		flsq = control
	}
	return m.cl.CSwap(m.handle, fsize, crng, trng, flsq)
}

func paramSuffix(params []float64) string {
	if len(params) == 0 {
		return ""
	}
	s := "("
	for i, p := range params {
		if i > 0 {
			s += ", "
		}
		s += formatParam(p)
	}
	return s + ")"
}

// ──────────────────────────── Init / Update ────────────────────────────

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		key := msg.String()
		if m.focus != focusInputParam {
			m.statusMsg = ""
		}

		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusState:
			switch key {
			case "q":
				return m, tea.Quit
			case "up", "k":
				if m.cursorQubit < m.numQubits-1 {
					m.cursorQubit++
				}
			case "down", "j":
				if m.cursorQubit > 0 {
					m.cursorQubit--
				}
			case "a", "enter":
				m.focus = focusMenu
				m.menuCat = 0
				m.menuItem = 0
			case "m":
				m.apply(menuItem{name: "Measure All", op: opMeasure}, -1)
			case "r":
				m.apply(menuItem{name: "Reset", op: opReset}, -1)
			case "p":
				m.refresh()
			}

		case focusMenu:
			switch key {
			case "esc":
				m.clearPending()
			case "up", "k":
				if m.menuItem > 0 {
					m.menuItem--
				}
			case "down", "j":
				cat := opMenu[m.menuCat]
				if m.menuItem < len(cat.items)-1 {
					m.menuItem++
				}
			case "left", "h":
				if m.menuCat > 0 {
					m.menuCat--
					m.menuItem = 0
				}
			case "right", "l":
				if m.menuCat < len(opMenu)-1 {
					m.menuCat++
					m.menuItem = 0
				}
			case "enter":
				item := opMenu[m.menuCat].items[m.menuItem]
				m.pending = item
				m.params = nil

				if item.needsParams {
					m.paramInput.SetValue("")
					m.paramInput.Placeholder = item.paramHint.example
					m.paramInput.Focus()
					m.focus = focusInputParam
					break
				}
				if item.needsTarget {
					if m.numQubits < 2 {
						m.clearPending()
						break
					}
					m.startTargetSelect()
					break
				}
				m.apply(item, -1)
			}

		case focusSelectTarget:
			switch key {
			case "esc":
				m.clearPending()
			case "up", "k":
				for next := m.targetQubit + 1; next < m.numQubits; next++ {
					if next != m.cursorQubit {
						m.targetQubit = next
						break
					}
				}
			case "down", "j":
				for next := m.targetQubit - 1; next >= 0; next-- {
					if next != m.cursorQubit {
						m.targetQubit = next
						break
					}
				}
			case "enter":
				m.apply(m.pending, m.targetQubit)
			}

		case focusInputParam:
			switch key {
			case "esc":
				m.clearPending()
			case "enter":
				params := parseParams(m.paramInput.Value())
				if params == nil && m.pending.paramHint.required {
					m.statusMsg = "Invalid parameter — use numbers or pi expressions (e.g. pi/2, 3*pi/4)"
					break
				}
				m.params = params
				m.paramInput.Blur()
				if m.pending.needsTarget {
					if m.numQubits < 2 {
						m.clearPending()
						break
					}
					m.startTargetSelect()
					break
				}
				m.apply(m.pending, -1)
			default:
				var cmd tea.Cmd
				m.paramInput, cmd = m.paramInput.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) startTargetSelect() {
	m.focus = focusSelectTarget
	m.targetQubit = m.cursorQubit - 1
	if m.targetQubit < 0 {
		m.targetQubit = m.cursorQubit + 1
	}
}

// View renders the UI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	logWidth := m.width / 3
	stateWidth := m.width - logWidth - 4
	controlsHeight := 5
	stateHeight := max(m.height-controlsHeight-2, 6)

	statePanel := m.renderStatePanel(stateWidth, stateHeight)
	logPanel := m.renderLogPanel(logWidth, stateHeight)
	controlsPanel := m.renderControlsPanel(m.width-4, controlsHeight-2)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, statePanel, logPanel)
	frame := lipgloss.JoinVertical(lipgloss.Left, topRow, controlsPanel)

	if m.focus == focusMenu {
		frame = overlayAt(frame, m.renderMenu(), 2, 2)
	}
	if m.focus == focusInputParam {
		frame = overlayAt(frame, m.renderParamInput(), 2, 2)
	}

	return frame
}

// renderParamInput renders the parameter input overlay.
func (m Model) renderParamInput() string {
	out := titleStyle.Render("Enter Parameters") + "\n\n"
	out += m.paramInput.View() + "\n\n"
	out += dimStyle.Render("Comma separated. Examples: pi/2, 3*pi/4, 1.57")
	return menuBorderStyle.Render(out)
}
