package messages

import (
	"screen-assistant/src/analysis"
	"screen-assistant/src/screenshot"
	"screen-assistant/src/session"
)

// Message is the base interface for everything posted into the event loop.
type Message interface {
	Type() string
}

const (
	TypeTrigger         = "Trigger"
	TypeQuit            = "Quit"
	TypeToggleOverlay   = "ToggleOverlay"
	TypeCopyLastAnswer  = "CopyLastAnswer"
	TypeRegionSelected  = "RegionSelected"
	TypeRegionCancelled = "RegionCancelled"
	TypeAnalysisDone    = "AnalysisDone"
)

// Source identifies where a user action came from, for logging.
type Source string

const (
	SourceHotkey   Source = "hotkey"
	SourceTray     Source = "tray"
	SourceDelegate Source = "delegate"
)

// Trigger starts a new capture session, preempting any session in progress.
type Trigger struct {
	Source Source
}

func (m Trigger) Type() string { return TypeTrigger }

type Quit struct {
	Source Source
}

func (m Quit) Type() string { return TypeQuit }

// ToggleOverlay flips overlay visibility without touching its content.
type ToggleOverlay struct {
	Source Source
}

func (m ToggleOverlay) Type() string { return TypeToggleOverlay }

// CopyLastAnswer puts the most recent answer on the clipboard.
type CopyLastAnswer struct {
	Source Source
}

func (m CopyLastAnswer) Type() string { return TypeCopyLastAnswer }

// RegionSelected is posted by the selection surface for session Session.
type RegionSelected struct {
	Session session.ID
	Region  screenshot.Region
}

func (m RegionSelected) Type() string { return TypeRegionSelected }

type RegionCancelled struct {
	Session session.ID
}

func (m RegionCancelled) Type() string { return TypeRegionCancelled }

// AnalysisDone carries the inference outcome back to the loop, tagged with
// the session that requested it.
type AnalysisDone struct {
	Session session.ID
	Result  analysis.Result
}

func (m AnalysisDone) Type() string { return TypeAnalysisDone }
