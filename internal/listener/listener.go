// Package listener owns the interactive terminal: a readline prompt
// for goal input plus AsyncPrintln for mission results that arrive
// on other goroutines and must not corrupt the line being edited.
package listener

import (
	"fmt"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

const idlePrompt = "agent> "

var (
	mu      sync.Mutex
	rl      *readline.Instance
	holding bool
	held    []string
)

// Init opens the readline instance. Call Close on shutdown.
func Init() error {
	var err error
	rl, err = readline.NewEx(&readline.Config{
		Prompt:          idlePrompt,
		InterruptPrompt: "",
		EOFPrompt:       "",
	})
	return err
}

func Close() {
	if rl != nil {
		_ = rl.Close()
	}
}

// GetInput blocks for one line of user input. EOF and interrupts
// come back as the empty string.
func GetInput() string {
	line, err := rl.Readline()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// GetConfirmation swaps the prompt, reads one answer, and restores
// the idle prompt. Asynchronous output is buffered until the answer
// is in so mission results cannot interleave with the question.
func GetConfirmation(prompt string) string {
	mu.Lock()
	rl.SetPrompt(prompt)
	holding = true
	mu.Unlock()

	line, err := rl.Readline()
	if err != nil {
		line = ""
	}

	mu.Lock()
	rl.SetPrompt(idlePrompt)
	holding = false
	for _, s := range held {
		writeAbove(s)
	}
	held = nil
	mu.Unlock()
	return strings.TrimSpace(strings.ToLower(line))
}

// AsyncPrintln prints a line above the current prompt without
// clobbering what the user is typing. Safe from any goroutine.
func AsyncPrintln(s string) {
	mu.Lock()
	defer mu.Unlock()
	if holding {
		held = append(held, s)
		return
	}
	writeAbove(s)
}

// writeAbove is called with mu held.
func writeAbove(s string) {
	if rl == nil {
		fmt.Println(s)
		return
	}
	_, _ = rl.Write([]byte("\r\n" + s + "\r\n"))
	rl.Refresh()
}
