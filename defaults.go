package cascade

const (
	DefaultServerCfgFile = "/etc/cascade/cascade.yaml"
	DefaultCliCfgFile    = "/etc/cascade/cascade-cli.yaml"

	// DefaultRefreshClamp is the lower bound applied to SOA REFRESH/RETRY
	// values before they are used to schedule timers. A zone whose SOA
	// advertises a smaller value is clamped up to this, so a misconfigured
	// upstream cannot turn the scheduler into a busy-loop.
	DefaultRefreshClamp = 30 // seconds

	// DefaultDiffChainDepth bounds how many historical diffs are retained
	// per zone for serving IXFR before the oldest is discarded.
	DefaultDiffChainDepth = 64
)
