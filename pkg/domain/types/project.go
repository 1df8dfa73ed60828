package types

const (
	// ProjectNameMiscellaneous collects notes that match no other project.
	ProjectNameMiscellaneous = "Miscellaneous"
	// ProjectNameMyLife is the default root for action items created without a project.
	ProjectNameMyLife = "My Life"

	// MaxProjectLevel is the deepest allowed project level; root projects are level 1.
	MaxProjectLevel = 3
)

// IsReservedProjectName reports whether name is created lazily by the system.
func IsReservedProjectName(name string) bool {
	return name == ProjectNameMiscellaneous || name == ProjectNameMyLife
}
