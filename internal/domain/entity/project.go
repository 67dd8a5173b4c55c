package entity

// ProjectNote represents one active project extracted from the notes vault.
type ProjectNote struct {
	Title       string
	Status      string
	NextActions []string
}

// ProjectReminders holds the project set selected for a night run.
type ProjectReminders struct {
	Projects []ProjectNote
}

// HasProjects reports whether there is anything to remind about.
func (r ProjectReminders) HasProjects() bool { return len(r.Projects) > 0 }
