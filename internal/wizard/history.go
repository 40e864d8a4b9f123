package wizard

import "github.com/verustcode/reportdesk/internal/model"

// history is a browser-style step stack. Pushing a step drops every entry
// after the cursor.
type history struct {
	steps  []model.Step
	cursor int
}

func newHistory(start model.Step) *history {
	return &history{steps: []model.Step{start}}
}

func (h *history) push(step model.Step) {
	if h.steps[h.cursor] == step {
		return
	}
	h.steps = append(h.steps[:h.cursor+1], step)
	h.cursor++
}

func (h *history) canBack() bool {
	return h.cursor > 0
}

func (h *history) canForward() bool {
	return h.cursor < len(h.steps)-1
}

func (h *history) back() (model.Step, bool) {
	if !h.canBack() {
		return "", false
	}
	h.cursor--
	return h.steps[h.cursor], true
}

func (h *history) peekForward() (model.Step, bool) {
	if !h.canForward() {
		return "", false
	}
	return h.steps[h.cursor+1], true
}

func (h *history) forward() {
	if h.canForward() {
		h.cursor++
	}
}
