package version

const (
	// LatticaVersion is the current semantic version of the daemon.
	LatticaVersion = "0.3.1"

	// WeightsVersionKey is sent alongside score submissions so the chain can
	// reject weights produced by incompatible validators.
	WeightsVersionKey uint64 = 1
)
