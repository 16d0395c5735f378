package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Patients(ctx context.Context) error
	AddPatient(ctx context.Context) error
	Use(ctx context.Context, id string) error
	Log(ctx context.Context, text string) error
	Voice(ctx context.Context, path, duration string) error
	Timeline(ctx context.Context) error
	Retry(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
	Pending(ctx context.Context) error
	Ask(ctx context.Context, question string) error
	AI(ctx context.Context) error
	Status(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, status, exit"
	helpLoggedIn  = "Available commands: patients, addpatient, use <id>, log [text], voice <file> [seconds], " +
		"(t)imeline, retry <id>, refresh, pending, ask <question>, ai, status, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the medscribe CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. The rest of the line is the argument. The
// loop exits on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help                  — show available commands
//	  - register              — create a doctor account
//	  - login                 — authenticate
//	  - status                — show connectivity
//	  - exit | quit           — leave the program
//
//	Logged in:
//	  - patients              — list patients
//	  - addpatient            — create a patient
//	  - use <id>              — select the current patient
//	  - log [text]            — add a text log (prompts when text is empty)
//	  - voice <file> [secs]   — upload a voice log
//	  - t | timeline          — show the logs of the current patient
//	  - retry <id>            — resubmit a failed log
//	  - refresh               — reload logs from the server
//	  - pending               — list unconfirmed submissions
//	  - ask <question>        — ask the AI assistant about the patient
//	  - ai                    — show the AI conversation
//	  - logout                — log out
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("ms %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)
		if cmd == "" {
			continue
		}

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if err := dispatch(ctx, a, cmd, arg); err != nil {
			printlnFn(styles.failed.Render(userMessage(err)))
		}
	}
}

var errUsage = errors.New("usage")

func dispatch(ctx context.Context, a execIface, cmd, arg string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpLoggedIn)
		} else {
			printlnFn(helpLoggedOut)
		}
		return nil
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "status":
		return a.Status(ctx)
	}

	if !a.isLoggedIn() {
		return errNotLoggedIn
	}

	switch cmd {
	case "logout":
		return a.Logout(ctx)
	case "patients":
		return a.Patients(ctx)
	case "addpatient":
		return a.AddPatient(ctx)
	case "use":
		if arg == "" {
			return fmt.Errorf("%w: use <patient id>", errUsage)
		}
		return a.Use(ctx, arg)
	case "log":
		return a.Log(ctx, arg)
	case "voice":
		path, dur, _ := strings.Cut(arg, " ")
		if path == "" {
			return fmt.Errorf("%w: voice <file> [seconds]", errUsage)
		}
		return a.Voice(ctx, path, strings.TrimSpace(dur))
	case "t", "timeline":
		return a.Timeline(ctx)
	case "retry":
		if arg == "" {
			return fmt.Errorf("%w: retry <id>", errUsage)
		}
		return a.Retry(ctx, arg)
	case "refresh":
		return a.Refresh(ctx)
	case "pending":
		return a.Pending(ctx)
	case "ask":
		if arg == "" {
			return fmt.Errorf("%w: ask <question>", errUsage)
		}
		return a.Ask(ctx, arg)
	case "ai":
		return a.AI(ctx)
	}
	return fmt.Errorf("unknown command: %s", cmd)
}
