package format

// DisplayNames maps application names to card titles.
type DisplayNames map[string]string

// DefaultDisplayNames are the titles used when none are configured.
func DefaultDisplayNames() DisplayNames {
	return DisplayNames{
		"skincares": "PRA (skincares.work)",
		"portfolio": "Portfolio (fablihamaliha.us)",
	}
}

// Name returns the configured title for app, or app itself.
func (d DisplayNames) Name(app string) string {
	if n, ok := d[app]; ok && n != "" {
		return n
	}
	return app
}

// Merge returns a copy of d overlaid with extra.
func (d DisplayNames) Merge(extra map[string]string) DisplayNames {
	out := make(DisplayNames, len(d)+len(extra))
	for k, v := range d {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
