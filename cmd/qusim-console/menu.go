package main

import (
	"fmt"
	"strings"

	"github.com/quforge/qusim/qasm"
)

// opKind tells the model how to turn a menu choice into protocol calls.
type opKind int

const (
	opGate1Q opKind = iota
	opGate2Q       // controlled gate, cursor qubit is the control
	opCU           // controlled arbitrary 1-qubit gate
	opSwap
	opCSwap
	opFMapZ
	opFMapZZ
	opQNet
	opMeasure
	opMeasureQubit
	opExpectZ
	opReset
)

// parameterHint provides a hint for parameter input
type parameterHint struct {
	required bool
	example  string
}

// menuItem represents a single operation choice in the menu.
type menuItem struct {
	name        string
	symbol      string
	op          opKind
	ftype       qasm.FType
	needsTarget bool
	needsParams bool
	paramHint   parameterHint
}

// menuCategory groups related menu items under a tab.
type menuCategory struct {
	name  string
	items []menuItem
}

// opMenu defines the operation picker categories and items.
var opMenu = []menuCategory{
	{
		name: "Single Qubit",
		items: []menuItem{
			{name: "Hadamard", symbol: "H", op: opGate1Q, ftype: qasm.FTypeH},
			{name: "Pauli-X (NOT)", symbol: "X", op: opGate1Q, ftype: qasm.FTypeX},
			{name: "Pauli-Y", symbol: "Y", op: opGate1Q, ftype: qasm.FTypeY},
			{name: "Pauli-Z", symbol: "Z", op: opGate1Q, ftype: qasm.FTypeZ},
			{name: "Identity", symbol: "I", op: opGate1Q, ftype: qasm.FTypeI},
			{name: "√X (SX)", symbol: "√X", op: opGate1Q, ftype: qasm.FTypeSX},
			{name: "Phase (S)", symbol: "S", op: opGate1Q, ftype: qasm.FTypeS},
			{name: "T Gate", symbol: "T", op: opGate1Q, ftype: qasm.FTypeT},
		},
	},
	{
		name: "Rotation",
		items: []menuItem{
			{name: "Rotate X", symbol: "RX", op: opGate1Q, ftype: qasm.FTypeRx, needsParams: true, paramHint: parameterHint{required: true, example: "pi/2"}},
			{name: "Rotate Y", symbol: "RY", op: opGate1Q, ftype: qasm.FTypeRy, needsParams: true, paramHint: parameterHint{required: true, example: "pi/2"}},
			{name: "Rotate Z", symbol: "RZ", op: opGate1Q, ftype: qasm.FTypeRz, needsParams: true, paramHint: parameterHint{required: true, example: "pi/2"}},
			{name: "Phase Shift", symbol: "P", op: opGate1Q, ftype: qasm.FTypePS, needsParams: true, paramHint: parameterHint{required: true, example: "pi/4"}},
		},
	},
	{
		name: "Controlled",
		items: []menuItem{
			{name: "CNOT", symbol: "●─⊕", op: opGate2Q, ftype: qasm.FTypeCX, needsTarget: true},
			{name: "Controlled-Y", symbol: "●─Y", op: opGate2Q, ftype: qasm.FTypeCY, needsTarget: true},
			{name: "Controlled-Z", symbol: "●─●", op: opGate2Q, ftype: qasm.FTypeCZ, needsTarget: true},
			{name: "C-Rotate X", symbol: "●─RX", op: opCU, ftype: qasm.FTypeRx, needsTarget: true, needsParams: true, paramHint: parameterHint{required: true, example: "pi/2"}},
			{name: "C-Rotate Y", symbol: "●─RY", op: opCU, ftype: qasm.FTypeRy, needsTarget: true, needsParams: true, paramHint: parameterHint{required: true, example: "pi/2"}},
			{name: "C-Phase", symbol: "●─P", op: opCU, ftype: qasm.FTypePS, needsTarget: true, needsParams: true, paramHint: parameterHint{required: true, example: "pi/4"}},
		},
	},
	{
		name: "Blocks",
		items: []menuItem{
			{name: "SWAP", symbol: "×─×", op: opSwap, needsTarget: true},
			{name: "Controlled SWAP", symbol: "●─×─×", op: opCSwap, needsTarget: true},
		},
	},
	{
		name: "QML",
		items: []menuItem{
			{name: "Feature Map Z", symbol: "FZ", op: opFMapZ, needsParams: true, paramHint: parameterHint{required: true, example: "0.3,0.7"}},
			{name: "Feature Map ZZ", symbol: "FZZ", op: opFMapZZ, needsParams: true, paramHint: parameterHint{required: true, example: "0.3,0.7"}},
			{name: "Real Amplitudes", symbol: "RA", op: opQNet, needsParams: true, paramHint: parameterHint{required: true, example: "pi/4,pi/4,0,0"}},
		},
	},
	{
		name: "Operations",
		items: []menuItem{
			{name: "Measure All", symbol: "M", op: opMeasure},
			{name: "Measure Qubit", symbol: "Mq", op: opMeasureQubit},
			{name: "Expectation ⟨Z⟩", symbol: "⟨Z⟩", op: opExpectZ},
			{name: "Reset Register", symbol: "|0⟩", op: opReset},
		},
	},
}

// renderMenu renders the floating operation-picker popup.
func (m Model) renderMenu() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Apply Operation"))
	sb.WriteString("\n")

	// Category tabs
	for i, cat := range opMenu {
		name := " " + cat.name + " "
		if i == m.menuCat {
			sb.WriteString(activeStyle.Render(name))
		} else {
			sb.WriteString(dimStyle.Render(name))
		}
		if i < len(opMenu)-1 {
			sb.WriteString(dimStyle.Render("│"))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(strings.Repeat("─", 52)))
	sb.WriteString("\n")

	// Items in the selected category
	cat := opMenu[m.menuCat]
	for i, item := range cat.items {
		if i == m.menuItem {
			sb.WriteString(menuSelectedStyle.Render(" ▸ "))
			sb.WriteString(menuSelectedStyle.Render(fmt.Sprintf("%-18s", item.name)))
			sb.WriteString(barStyle.Render(item.symbol))
		} else {
			sb.WriteString("   ")
			sb.WriteString(menuNormalStyle.Render(fmt.Sprintf("%-18s", item.name)))
			sb.WriteString(dimStyle.Render(item.symbol))
		}
		if item.needsTarget {
			sb.WriteString(dimStyle.Render(" →target"))
		}
		if item.needsParams {
			sb.WriteString(dimStyle.Render(fmt.Sprintf(" (%s)", item.paramHint.example)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render(" ↑↓ Select  ←→ Cat  ⏎ Ok  Esc ✕"))

	return menuBorderStyle.Render(sb.String())
}
