package inbox

import "bebusy.app/inbox/internal/model"

// Tab is the active filter of the inbox view.
type Tab string

const (
	TabAll    Tab = "all"
	TabDirect Tab = "direct"
	TabGroup  Tab = "group"
)

// ParseTab maps a request parameter onto a tab, defaulting to all.
func ParseTab(s string) Tab {
	switch Tab(s) {
	case TabDirect:
		return TabDirect
	case TabGroup:
		return TabGroup
	default:
		return TabAll
	}
}

// View is the tab-filtered list handed to the UI. Empty distinguishes
// "no results" from a zero value; loading state is the caller's.
type View struct {
	Tab     Tab                   `json:"tab"`
	Threads []model.ThreadSummary `json:"threads"`
	Empty   bool                  `json:"empty"`
}

// Project derives the display list for a tab. Pure: no mutation, safe
// to call on every render. The input must already be sorted (the
// reconciler keeps it that way).
func Project(threads []model.ThreadSummary, tab Tab) View {
	out := make([]model.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		switch tab {
		case TabDirect:
			if t.Kind != model.ThreadDirect {
				continue
			}
		case TabGroup:
			if t.Kind != model.ThreadGroup {
				continue
			}
		}
		out = append(out, t)
	}

	return View{
		Tab:     tab,
		Threads: out,
		Empty:   len(out) == 0,
	}
}
