// Package tui implements the interactive provisioning wizard.
//
// The wizard walks the operator through the questions a provisioning run
// needs: credentials, secret key, connection method, and either a serial
// adapter pick or a remote host/port pair. It is built on bubbletea with
// bubbles text inputs and list, styled with lipgloss.
//
// A plain line-based prompter backs the same questions when stdin is not
// a terminal.
package tui
