package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"

	"github.com/entrhq/pagechat/pkg/history"
	"github.com/entrhq/pagechat/pkg/types"
)

// streamInterrupted separates partial streamed text from the full batch answer.
const streamInterrupted = "--- stream interrupted; full answer ---"

// asker is the part of the orchestrator a session uses.
type asker interface {
	Ask(ctx context.Context, req types.AskRequest, onDelta func(types.StreamDelta)) types.AskResponse
}

// session runs questions for one tab against the terminal.
type session struct {
	orch        asker
	history     history.Store
	tabID       string
	includePage bool
	copy        bool
	counter     int
	out         io.Writer
	errOut      io.Writer
}

func snapshotWithSelection(selection string) types.PageSnapshot {
	return types.PageSnapshot{Selection: selection}
}

// ask sends one question, printing deltas as they arrive, and records the
// exchange in the tab's history on success.
func (s *session) ask(ctx context.Context, question string) types.AskResponse {
	turns, err := s.history.Load(ctx, s.tabID)
	if err != nil {
		fmt.Fprintf(s.errOut, "warning: history unavailable: %v\n", err)
	}

	s.counter++
	streamID := fmt.Sprintf("%s-%d", s.tabID, s.counter)

	printedDeltas := false
	resp := s.orch.Ask(ctx, types.AskRequest{
		TabID:            s.tabID,
		Question:         question,
		History:          turns,
		IncludePage:      s.includePage,
		StreamID:         streamID,
		StreamingAllowed: true,
	}, func(d types.StreamDelta) {
		if d.StreamID == streamID {
			printedDeltas = true
			fmt.Fprint(s.out, d.Text)
		}
	})

	if !resp.OK {
		if resp.Superseded || resp.Code == types.CodeCanceled {
			fmt.Fprintln(s.out)
			return resp
		}
		fmt.Fprintf(s.errOut, "\n⚠️ %s\n", resp.Error)
		if resp.Code.Retryable() {
			fmt.Fprintln(s.errOut, "(ask again to retry)")
		}
		return resp
	}

	switch {
	case resp.Streamed:
		fmt.Fprintln(s.out)
	case printedDeltas:
		// The stream failed part way and batch mode answered in full.
		fmt.Fprintf(s.out, "\n%s\n%s\n", streamInterrupted, resp.Text)
	default:
		fmt.Fprintln(s.out, resp.Text)
	}

	if err := s.history.Append(context.WithoutCancel(ctx), s.tabID, resp.Turns...); err != nil {
		fmt.Fprintf(s.errOut, "warning: failed to save history: %v\n", err)
	}
	if s.copy {
		if err := clipboard.WriteAll(resp.Text); err != nil {
			fmt.Fprintf(s.errOut, "warning: failed to copy to clipboard: %v\n", err)
		}
	}
	return resp
}

// repl reads questions until /quit, EOF or Ctrl+C at the prompt.
func (s *session) repl(ctx context.Context) error {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	historyFile := promptHistoryPath()
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.OpenFile(historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(s.out, "Ask about the page. Commands: /reset clears the conversation, /quit exits.")
	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := line.Prompt("pagechat> ")
		if err != nil {
			// Ctrl+C, Ctrl+D or a closed terminal end the session.
			fmt.Fprintln(s.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := s.history.Reset(ctx, s.tabID); err != nil {
				fmt.Fprintf(s.errOut, "failed to reset: %v\n", err)
				continue
			}
			fmt.Fprintln(s.out, "Conversation cleared.")
			continue
		}

		s.ask(ctx, input)
	}
}

func promptHistoryPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = os.TempDir()
	}
	dir = filepath.Join(dir, ".pagechat")
	os.MkdirAll(dir, 0750)
	return filepath.Join(dir, "prompt_history")
}
