package report

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"ksinn/internal/melody"
	"ksinn/internal/result"
	"ksinn/internal/train"
)

const verboseSeparator = "------------------------------------------------------------------------"

// Console writes training progress as text. When Interactive is set the
// checkpoint line is rewritten in place with a carriage return.
type Console struct {
	Out         io.Writer
	Interactive bool

	pending bool
}

var _ train.Reporter = (*Console)(nil)

func NewConsole(f *os.File) *Console {
	fd := f.Fd()
	return &Console{
		Out:         f,
		Interactive: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
	}
}

func (c *Console) Checkpoint(cp train.Checkpoint) error {
	line := fmt.Sprintf("Iterations: %s     Correct: %2.2f%%     Error: %8.5f%%",
		humanize.Comma(int64(cp.Accumulative)), cp.PercentCorrect, cp.ErrorPercent)
	if c.Interactive {
		c.pending = true
		_, err := fmt.Fprint(c.Out, "\r"+line)
		return err
	}
	_, err := fmt.Fprintln(c.Out, line)
	return err
}

func (c *Console) Iteration(outcome result.Outcome) error {
	answer, err := melody.NoteName(outcome.Key)
	if err != nil {
		return err
	}
	guess, err := melody.NoteName(outcome.Guess)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Out, "%s\nanswer:\t%s\n\t|\tnet's guess:\t%s\n\t|\terr:\t%8.5f  %s\n",
		verboseSeparator, answer, guess, outcome.ErrorPercent(), marker(outcome.Correct))
	return err
}

func (c *Console) BeginFinal() error {
	if err := c.endLine(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(c.Out, "Performing final test...")
	return err
}

func (c *Console) Final(outcome result.Outcome) error {
	answer, err := melody.NoteName(outcome.Key)
	if err != nil {
		return err
	}
	guess, err := melody.NoteName(outcome.Guess)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Out, "answer: %s\tnet's guess: %s %s\n", answer, guess, marker(outcome.Correct))
	return err
}

// Summary closes a run with its final score and, when one was saved, the
// snapshot id.
func (c *Console) Summary(res train.Result) error {
	if err := c.endLine(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Out, "Correct: %2.2f%% after %s iterations (seed %d)\n",
		res.PercentCorrect, humanize.Comma(int64(res.Accumulative)), res.Seed); err != nil {
		return err
	}
	if res.SnapshotID == "" {
		return nil
	}
	_, err := fmt.Fprintf(c.Out, "Saved snapshot %s\n", res.SnapshotID)
	return err
}

func (c *Console) endLine() error {
	if !c.pending {
		return nil
	}
	c.pending = false
	_, err := fmt.Fprintln(c.Out)
	return err
}

func marker(correct bool) string {
	if correct {
		return "+"
	}
	return " "
}
