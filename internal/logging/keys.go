package logging

// Structured log attribute keys.
const (
	Args     = "args"
	Binding  = "binding"
	Branch   = "branch"
	Client   = "client"
	Cmd      = "cmd"
	Count    = "count"
	Dir      = "dir"
	Duration = "duration"
	Error    = "error"
	Event    = "event"
	Layout   = "layout"
	Path     = "path"
	Policy   = "policy"
	Remote   = "remote"
	RunID    = "run_id"
	Task     = "task"
	URL      = "url"
)
