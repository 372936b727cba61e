package params

var (
	// pausesKey stores the module pause toggles.
	pausesKey = []byte("system/pauses")
)
