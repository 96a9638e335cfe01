package logfields

const (
	LogSubsys    = "subsys"
	LogComponent = "component"

	// Library the name or image base of a registered library
	Library = "library"

	// ImageBase the virtual address a library is loaded at
	ImageBase = "imagebase"

	// Symbol a symbol name (possibly in encoded short form)
	Symbol = "symbol"

	// MetaAddr the remote address of a library metadata record
	MetaAddr = "metaaddr"

	// PID the process id
	PID = "pid"
)
