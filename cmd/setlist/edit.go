package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/setlist/pkg/autosave"
	"github.com/aretw0/setlist/pkg/core"
	"github.com/aretw0/setlist/pkg/sequence"
	"github.com/aretw0/setlist/pkg/setlist"
	"github.com/aretw0/setlist/pkg/view"
)

const editHelp = `commands (positions are 1-based):
  title <text>              rename the setlist
  song <title> [/ <artist>] append a song
  note [<label>:] <text>    append a note
  encore                    append the encore boundary
  move <from> <to>          reorder
  rm <pos>                  remove an item
  show | text               print the items or the text program
  save                      commit now
  quit                      commit and leave`

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit a setlist interactively; changes are saved automatically",
	Long: `edit reads one command per line from stdin and applies it to an
in-memory copy of the setlist. Changes are written back after a short quiet
period, and once more on exit. Changes made by another process are picked up
while there are no unsaved edits.

` + editHelp,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		svc := openService()
		doc := mustResolve(ctx, svc, args[0])
		ctrl, err := svc.Edit(ctx, doc.ID)
		if err != nil {
			fatal("Error opening editor", err)
		}
		defer ctrl.Close()

		if err := svc.Follow(ctx, ctrl); err != nil && !errors.Is(err, setlist.ErrWatchUnsupported) {
			fatal("Error watching setlist", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "editing %s (%s). type help for commands.\n", doc.Title, doc.ID)
		if err := runSession(ctx, ctrl, cmd.InOrStdin(), out); err != nil {
			fatal("Error saving setlist", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}

// runSession applies line commands from in to ctrl until EOF, quit or ctx
// is done, then flushes.
func runSession(ctx context.Context, ctrl *autosave.Controller, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			quit, err := execLine(ctx, ctrl, line, out)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				break loop
			}
		}
	}

	return ctrl.Flush(context.WithoutCancel(ctx))
}

func execLine(ctx context.Context, ctrl *autosave.Controller, line string, out io.Writer) (bool, error) {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "":
		return false, nil
	case "help", "?":
		fmt.Fprintln(out, editHelp)
		return false, nil
	case "quit", "exit", "q":
		return true, nil
	case "show", "ls":
		snap := ctrl.Snapshot()
		writeRows(out, []string{"#", "CODE", "KIND", "TITLE", "ARTIST / TEXT", "MEMO", "ID"}, itemRows(snap.Items),
			[]columnAlignment{alignRight})
		return false, nil
	case "text":
		snap := ctrl.Snapshot()
		fmt.Fprintln(out, view.Text(snap.Title, snap.Items))
		return false, nil
	case "save":
		if err := ctrl.Flush(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(out, "saved")
		return false, nil
	case "title":
		return false, ctrl.SetTitle(rest)
	case "song":
		title, artist, _ := strings.Cut(rest, "/")
		song := core.Song{ID: core.NewID(), Title: strings.TrimSpace(title), Artist: strings.TrimSpace(artist)}
		return false, ctrl.Apply(func(items []core.Item) []core.Item {
			return sequence.Append(items, song)
		})
	case "note":
		note := core.Note{ID: core.NewID(), Text: rest}
		if label, text, ok := strings.Cut(rest, ":"); ok {
			note.Label, note.Text = strings.TrimSpace(label), strings.TrimSpace(text)
		}
		return false, ctrl.Apply(func(items []core.Item) []core.Item {
			return sequence.Append(items, note)
		})
	case "encore":
		if sequence.HasEncoreBoundary(ctrl.Snapshot().Items) {
			return false, setlist.ErrEncoreExists
		}
		return false, ctrl.Apply(func(items []core.Item) []core.Item {
			return sequence.Append(items, core.EncoreBoundary{ID: core.NewID()})
		})
	case "move", "mv":
		from, to, err := twoPositions(rest)
		if err != nil {
			return false, err
		}
		return false, ctrl.Apply(func(items []core.Item) []core.Item {
			return sequence.MoveTo(items, from-1, to-1)
		})
	case "rm", "remove":
		n, err := strconv.Atoi(rest)
		if err != nil {
			return false, fmt.Errorf("rm wants a position, got %q", rest)
		}
		items := ctrl.Snapshot().Items
		if n < 1 || n > len(items) {
			return false, fmt.Errorf("position %d out of range (1-%d)", n, len(items))
		}
		id := items[n-1].ItemID()
		return false, ctrl.Apply(func(items []core.Item) []core.Item {
			return sequence.RemoveByID(items, id)
		})
	}
	return false, fmt.Errorf("unknown command %q (try help)", verb)
}

func twoPositions(s string) (int, int, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("want two positions, got %q", s)
	}
	a, errA := strconv.Atoi(fields[0])
	b, errB := strconv.Atoi(fields[1])
	if err := errors.Join(errA, errB); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
