package rule

import "fmt"

// KillSwitchError is raised when a tick exceeds one of the configured
// hard ceilings (spec.md §4.9 "Hard ceilings", §6 "Kill-switch defaults").
type KillSwitchError struct {
	Switch string
	Limit  int
	Rule   string
}

func (e KillSwitchError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("kill switch %q exceeded limit %d (rule %q)", e.Switch, e.Limit, e.Rule)
	}
	return fmt.Sprintf("kill switch %q exceeded limit %d", e.Switch, e.Limit)
}
