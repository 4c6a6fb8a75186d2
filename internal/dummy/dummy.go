package dummy

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	ctxpkg "github.com/stupiduntilnot/chatrelay/internal/context"
	modelpkg "github.com/stupiduntilnot/chatrelay/internal/model"
	"github.com/stupiduntilnot/chatrelay/internal/openai"
)

// DryRunReply is returned for every "ok" step; no upstream is contacted.
const DryRunReply = "(dry-run) upstream disabled; this is a placeholder reply."

type action struct {
	kind string
	arg  string
}

func parseScript(script string) ([]action, error) {
	if strings.TrimSpace(script) == "" {
		return []action{{kind: "ok"}}, nil
	}
	parts := strings.Split(script, ",")
	actions := make([]action, 0, len(parts))
	for _, p := range parts {
		token := strings.TrimSpace(p)
		if token == "" {
			continue
		}
		if token == "ok" {
			actions = append(actions, action{kind: "ok"})
			continue
		}
		if strings.HasPrefix(token, "err:") {
			actions = append(actions, action{kind: "err", arg: strings.TrimPrefix(token, "err:")})
			continue
		}
		if strings.HasPrefix(token, "sleep:") {
			actions = append(actions, action{kind: "sleep", arg: strings.TrimPrefix(token, "sleep:")})
			continue
		}
		if strings.HasPrefix(token, "msg:") {
			actions = append(actions, action{kind: "msg", arg: strings.TrimPrefix(token, "msg:")})
			continue
		}
		if strings.HasPrefix(token, "msgb64:") {
			actions = append(actions, action{kind: "msgb64", arg: strings.TrimPrefix(token, "msgb64:")})
			continue
		}
		if token == "echo" {
			actions = append(actions, action{kind: "echo"})
			continue
		}
		return nil, fmt.Errorf("invalid dummy action: %s", token)
	}
	if len(actions) == 0 {
		actions = append(actions, action{kind: "ok"})
	}
	return actions, nil
}

type scriptRunner struct {
	actions []action
	index   int
}

func newRunner(script string) (*scriptRunner, error) {
	actions, err := parseScript(script)
	if err != nil {
		return nil, err
	}
	return &scriptRunner{actions: actions}, nil
}

// next returns the next step; the last step repeats once the script is used up.
func (r *scriptRunner) next() action {
	if len(r.actions) == 0 {
		return action{kind: "ok"}
	}
	if r.index >= len(r.actions) {
		return r.actions[len(r.actions)-1]
	}
	a := r.actions[r.index]
	r.index++
	return a
}

// Call records one GenerateReply invocation.
type Call struct {
	Message string
	System  string
	History []ctxpkg.Message
}

// Provider answers from a comma-separated script instead of the network:
// "ok", "echo", "msg:<text>", "msgb64:<base64>", "sleep:<ms>",
// "err:rate_limited", "err:upstream" or "err:<anything>".
type Provider struct {
	mu     sync.Mutex
	script *scriptRunner
	calls  []Call
}

// NewProvider builds a scripted provider.
func NewProvider(script string) (*Provider, error) {
	runner, err := newRunner(script)
	if err != nil {
		return nil, err
	}
	return &Provider{script: runner}, nil
}

// NewDryRun returns a provider that always answers with DryRunReply.
func NewDryRun() *Provider {
	return &Provider{script: &scriptRunner{actions: []action{{kind: "ok"}}}}
}

var _ modelpkg.Provider = (*Provider)(nil)

// Calls returns a copy of every invocation seen so far.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *Provider) GenerateReply(ctx context.Context, message, system string, history []ctxpkg.Message) (modelpkg.Completion, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Message: message, System: system, History: append([]ctxpkg.Message(nil), history...)})
	a := p.script.next()
	p.mu.Unlock()

	switch a.kind {
	case "ok":
		return modelpkg.Completion{Reply: DryRunReply}, nil
	case "echo":
		return modelpkg.Completion{Reply: "echo: " + message}, nil
	case "err":
		return modelpkg.Completion{}, scriptedError(a.arg)
	case "sleep":
		ms, _ := strconv.Atoi(a.arg)
		if ms > 0 {
			select {
			case <-ctx.Done():
				return modelpkg.Completion{}, &openai.UpstreamError{Err: ctx.Err()}
			case <-time.After(time.Duration(ms) * time.Millisecond):
			}
		}
		return modelpkg.Completion{Reply: DryRunReply}, nil
	case "msg":
		return modelpkg.Completion{Reply: a.arg}, nil
	case "msgb64":
		raw, err := base64.StdEncoding.DecodeString(a.arg)
		if err != nil {
			return modelpkg.Completion{}, fmt.Errorf("dummy provider msgb64 decode failed: %w", err)
		}
		return modelpkg.Completion{Reply: string(raw)}, nil
	default:
		return modelpkg.Completion{Reply: DryRunReply}, nil
	}
}

func scriptedError(class string) error {
	switch class {
	case "rate_limited":
		return &openai.RateLimitedError{Attempts: 3}
	case "upstream", "":
		return &openai.UpstreamError{Status: 503, Attempts: 3, Err: errors.New("dummy upstream failure")}
	default:
		return fmt.Errorf("dummy provider error class=%s", class)
	}
}
