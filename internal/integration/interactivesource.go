package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/pkg/models"
	"golang.org/x/term"
)

// otherSpeaker is the identity given to lines the operator marks as not
// spoken by the target.
const otherSpeaker = "someone else"

// promptFunc asks for one line of speech. An empty text ends the session.
type promptFunc func(ctx context.Context) (text string, fromTarget bool, err error)

// InteractiveSource is a fragment source for demos and manual testing: the
// operator types what was said and whether the target speaker said it.
type InteractiveSource struct {
	target string
	prompt promptFunc
	now    func() time.Time

	start  sync.Once
	frags  chan models.TranscriptFragment
	done   chan struct{}
	mu     sync.Mutex
	runErr error
}

// NewInteractiveSource creates a source that prompts on in/out. Accessible
// (line-based) prompts are used when in is not a terminal.
func NewInteractiveSource(in io.Reader, out io.Writer, target string) *InteractiveSource {
	s := newInteractiveSource(target, nil)
	s.prompt = huhPrompt(in, out, target)
	return s
}

func newInteractiveSource(target string, prompt promptFunc) *InteractiveSource {
	return &InteractiveSource{
		target: target,
		prompt: prompt,
		now:    time.Now,
		frags:  make(chan models.TranscriptFragment, 16),
		done:   make(chan struct{}),
	}
}

// Poll starts prompting on first use and returns whatever has been entered
// since the previous call. Once the operator ends input and everything has
// been delivered, Poll reports core.ErrSourceClosed.
func (s *InteractiveSource) Poll(ctx context.Context) ([]models.TranscriptFragment, error) {
	s.start.Do(func() { go s.run(ctx) })

	if out := s.drain(); len(out) > 0 {
		return out, nil
	}

	select {
	case <-s.done:
		// A fragment may have been sent just before done was closed.
		if out := s.drain(); len(out) > 0 {
			return out, nil
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.runErr != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrSourceClosed, s.runErr)
		}
		return nil, core.ErrSourceClosed
	default:
		return nil, nil
	}
}

func (s *InteractiveSource) drain() []models.TranscriptFragment {
	var out []models.TranscriptFragment
	for {
		select {
		case f := <-s.frags:
			out = append(out, f)
		default:
			return out
		}
	}
}

func (s *InteractiveSource) run(ctx context.Context) {
	defer close(s.done)
	for {
		text, fromTarget, err := s.prompt(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, huh.ErrUserAborted) {
				s.mu.Lock()
				s.runErr = err
				s.mu.Unlock()
			}
			return
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		speaker := otherSpeaker
		if fromTarget {
			speaker = s.target
		}
		select {
		case s.frags <- models.TranscriptFragment{Text: text, SpeakerID: speaker, Timestamp: s.now()}:
		case <-ctx.Done():
			return
		}
	}
}

// huhPrompt builds the interactive form: the spoken text, then whether the
// target speaker said it.
func huhPrompt(in io.Reader, out io.Writer, target string) promptFunc {
	accessible := true
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		accessible = false
	}

	return func(ctx context.Context) (string, bool, error) {
		var text string
		fromTarget := true

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("What was said?").
					Description("Leave empty to finish").
					Placeholder("please create issue title ...").
					Value(&text),
				huh.NewConfirm().
					Title(fmt.Sprintf("Spoken by %s?", target)).
					Affirmative("Yes").
					Negative("No").
					Value(&fromTarget),
			),
		).
			WithInput(in).
			WithOutput(out).
			WithAccessible(accessible)

		if err := form.RunWithContext(ctx); err != nil {
			return "", false, fmt.Errorf("prompting for speech: %w", err)
		}
		return text, fromTarget, nil
	}
}
