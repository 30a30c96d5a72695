package visualizer

// Options configures the visualization output.
type Options struct {
	// ShowActions appends the action name to transition labels
	ShowActions bool

	// Direction controls diagram flow: "TB" (top-bottom) or "LR" (left-right)
	Direction string

	// HighlightPath highlights the states a run went through
	HighlightPath []string

	// Fenced wraps the diagram in a ```mermaid markdown block
	Fenced bool
}

// DefaultOptions returns sensible defaults for visualization.
func DefaultOptions() Options {
	return Options{
		ShowActions: true,
		Direction:   "TB",
		Fenced:      true,
	}
}

// WithShowActions enables/disables action names on transitions.
func (o Options) WithShowActions(show bool) Options {
	o.ShowActions = show

	return o
}

// WithDirection sets the diagram direction.
func (o Options) WithDirection(direction string) Options {
	o.Direction = direction

	return o
}

// WithHighlightPath sets states to highlight.
func (o Options) WithHighlightPath(path []string) Options {
	o.HighlightPath = path

	return o
}

// WithFenced enables/disables the markdown code fence.
func (o Options) WithFenced(fenced bool) Options {
	o.Fenced = fenced

	return o
}
