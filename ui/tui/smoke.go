package main

import (
	"encoding/json"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jcccaz/TRIAI/internal/council"
)

type smokeReport struct {
	ok    bool
	view  string
	json  string
	final appModel
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// runSmoke drives the model with synthetic keys and records what each
// stage left behind. Commands returned by Update are never executed, so
// nothing here reaches the network even when it is enabled.
func runSmoke(m appModel) smokeReport {
	var model tea.Model = m
	current := func() appModel {
		am, _ := model.(appModel)
		return am
	}

	commandPaletteOpened := false
	systemPaletteOpened := false
	paletteFiltered := false
	escClosedPalette := false
	providersOpened := false
	zeroProviderBlocked := false
	networkGuarded := false
	quitConfirmOpened := false
	quitCancelled := false

	// "/" opens the command palette, a second "/" promotes it.
	model, _ = model.Update(runes("/"))
	am := current()
	commandPaletteOpened = am.currentOverlay() == overlayCommandPalette && am.commandPaletteNamespace == "/"
	model, _ = model.Update(runes("/"))
	am = current()
	systemPaletteOpened = am.currentOverlay() == overlayCommandPalette && am.commandPaletteNamespace == "//"
	model, _ = model.Update(runes("h"))
	am = current()
	items := filteredCommandPaletteItems(am.commandPaletteNamespace, am.commandPaletteQuery)
	paletteFiltered = len(items) > 0 && items[0].cmd == "history"

	// Esc closes the palette and keeps the deck.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEscape})
	am = current()
	escClosedPalette = am.currentOverlay() == overlayNone && am.currentScreen() == screenDeck

	// Switch every model off through the providers overlay.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	am = current()
	providersOpened = am.currentOverlay() == overlayProviders
	for _, p := range council.Providers() {
		if current().sess.IsActive(p) {
			model, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		}
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEscape})

	// An ask with no models must be refused before any request is built.
	model, _ = model.Update(runes("What is the capital of France?"))
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	am = current()
	if a, ok := am.lastAlert(); ok {
		zeroProviderBlocked = a.Code == "ask.invalid" && am.netCalls == 0 && !am.sess.Querying()
	}

	// With one model back on, a network-disabled session still sends nothing.
	if am.cfg.disableNetwork {
		next, _ := am.executeCommandText("//toggle openai")
		model = next
		model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
		am = current()
		if a, ok := am.lastAlert(); ok {
			networkGuarded = a.Code == "network.disabled" && am.netCalls == 0 && !am.sess.Querying()
		}
	} else {
		networkGuarded = true
	}

	// Esc on the idle deck asks before quitting; "n" backs out.
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyEscape})
	am = current()
	quitConfirmOpened = am.currentOverlay() == overlayQuitConfirm
	model, _ = model.Update(runes("n"))
	am = current()
	quitCancelled = am.currentOverlay() == overlayNone

	ok := commandPaletteOpened && systemPaletteOpened && paletteFiltered && escClosedPalette &&
		providersOpened && zeroProviderBlocked && networkGuarded && quitConfirmOpened && quitCancelled

	view := am.View()
	summary := map[string]any{
		"version":              1,
		"ok":                   ok,
		"sessionId":            am.sessionID,
		"screen":               am.currentScreen().String(),
		"overlay":              am.currentOverlay().String(),
		"networkCalls":         am.netCalls,
		"commandPaletteOpened": commandPaletteOpened,
		"systemPaletteOpened":  systemPaletteOpened,
		"paletteFiltered":      paletteFiltered,
		"escClosedPalette":     escClosedPalette,
		"providersOpened":      providersOpened,
		"zeroProviderBlocked":  zeroProviderBlocked,
		"networkGuarded":       networkGuarded,
		"quitConfirmOpened":    quitConfirmOpened,
		"quitCancelled":        quitCancelled,
	}
	b, _ := json.Marshal(summary)
	return smokeReport{ok: ok, view: view, json: string(b), final: am}
}
