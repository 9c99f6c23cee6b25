package app

// Key binding constants used in handleKey.
const (
	KeyQuit         = "q"
	KeyQuitUpper    = "Q"
	KeyCtrlC        = "ctrl+c"
	KeyExport       = "e"
	KeyExportUpper  = "E"
	KeyHistory      = "h"
	KeyHistoryUpper = "H"
	KeyBack         = "b"
	KeyEsc          = "esc"
	KeyLeft         = "left"
	KeyRight        = "right"
	KeyPanBack      = "["
	KeyPanForward   = "]"
	KeyHome         = "home"
	KeyEnd          = "end"
)
