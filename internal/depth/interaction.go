package depth

import "time"

const DefaultScrollQuiet = 150 * time.Millisecond

// Interaction tracks whether the user is scrolling the chart. Tooltips stay
// hidden until no wheel event arrived for Quiet.
type Interaction struct {
	Quiet     time.Duration
	lastWheel time.Time
	hovering  bool
}

func NewInteraction() *Interaction {
	return &Interaction{Quiet: DefaultScrollQuiet}
}

func (i *Interaction) OnWheel(at time.Time) {
	i.lastWheel = at
}

func (i *Interaction) OnMouseOver() { i.hovering = true }
func (i *Interaction) OnMouseOut()  { i.hovering = false }

func (i *Interaction) Hovering() bool { return i.hovering }

func (i *Interaction) Scrolling(now time.Time) bool {
	if i.lastWheel.IsZero() {
		return false
	}
	return now.Sub(i.lastWheel) < i.Quiet
}
